package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// FingerprintFile hashes a file's full contents. Two byte-identical files
// always produce the same key regardless of name or location.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for fingerprint: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file contents: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintString hashes a literal string value.
func FingerprintString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// FingerprintParams hashes a parameter set canonically: keys sorted, values
// JSON-encoded, so map iteration order never changes the key.
func FingerprintParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		encoded, err := json.Marshal(params[k])
		if err != nil {
			b.WriteString(fmt.Sprintf("%v", params[k]))
			continue
		}
		b.Write(encoded)
	}
	return FingerprintString(b.String())
}

// CombineFingerprints derives a single key from multiple inputs, keeping
// order significant.
func CombineFingerprints(parts ...string) string {
	return FingerprintString(strings.Join(parts, "|"))
}
