package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatVersionToken encodes a record's version and last-write time as
// an opaque token: "v{version}-{updatedAtEpochMillis}".
func FormatVersionToken(version int, updatedAt time.Time) string {
	return fmt.Sprintf("v%d-%d", version, updatedAt.UnixMilli())
}

// ParseVersionToken extracts the expected version from a token produced
// by FormatVersionToken. An empty token is reported as
// ErrPreconditionRequired; a malformed one as ErrValidation.
func ParseVersionToken(token string) (int, error) {
	if token == "" {
		return 0, ErrPreconditionRequired
	}
	rest, ok := strings.CutPrefix(token, "v")
	if !ok {
		return 0, fmt.Errorf("version token %q: missing v prefix: %w", token, ErrValidation)
	}
	verStr, millisStr, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, fmt.Errorf("version token %q: missing timestamp: %w", token, ErrValidation)
	}
	version, err := strconv.Atoi(verStr)
	if err != nil || version < 1 {
		return 0, fmt.Errorf("version token %q: bad version: %w", token, ErrValidation)
	}
	if _, err := strconv.ParseInt(millisStr, 10, 64); err != nil {
		return 0, fmt.Errorf("version token %q: bad timestamp: %w", token, ErrValidation)
	}
	return version, nil
}
