package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse marks malformed timestamps or transcript records.
	ErrParse = errors.New("parse error")
	// ErrEmptyTranscript marks transcripts with no usable timed lines.
	ErrEmptyTranscript = errors.New("empty transcript")
	// ErrMissingArtifact marks files a stage claims to have produced but that
	// are absent on disk.
	ErrMissingArtifact = errors.New("missing artifact")
	// ErrExternalTool marks failures from collaborator processes and services.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks stage outputs rejected by their validator.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups that produced no result.
	ErrNotFound = errors.New("not found")
	// ErrAuthRequired marks downloads blocked pending authentication.
	ErrAuthRequired = errors.New("authentication required")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification label for an error, suitable for
// structured failure reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrEmptyTranscript):
		return "empty_transcript"
	case errors.Is(err, ErrMissingArtifact):
		return "missing_artifact"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "failure"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
