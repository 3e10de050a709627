package codec

import (
	"errors"
	"fmt"

	"github.com/roach88/bir/internal/ir"
)

// Section names a region of a module file.
type Section string

const (
	SectionHeader  Section = "header"
	SectionTrailer Section = "trailer"
	SectionExterns Section = "externs"
	SectionData    Section = "data"
	SectionGlobals Section = "globals"
	SectionFuncs   Section = "funcs"
	SectionStrings Section = "strings"
)

// FormatError reports a header that is not a supported bir module.
// Callers typically report it and abort the run.
type FormatError struct {
	// Found is the version byte in the file. Zero when the header is
	// truncated or the magic does not match.
	Found byte

	// Expected is the only supported version.
	Expected byte

	// Reason is a short description of what is wrong.
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error: %s", e.Reason)
}

func newVersionError(found byte) *FormatError {
	reason := fmt.Sprintf("unsupported bytecode version %d, expected %d", found, ir.FormatVersion)
	if found == ir.LegacyFormatVersion {
		reason += " (legacy format without string table)"
	}
	return &FormatError{Found: found, Expected: ir.FormatVersion, Reason: reason}
}

// CorruptDataError reports a buffer with a valid header whose contents
// cannot be decoded: truncation, an unknown tag, an offset or index out
// of range, or a structural invariant that does not hold.
type CorruptDataError struct {
	Section Section
	Offset  int // byte offset in the buffer where the problem was found
	Reason  string
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt %s section at offset %d: %s", e.Section, e.Offset, e.Reason)
}

// IsFormatError returns true if err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsCorruptData returns true if err is or wraps a *CorruptDataError.
func IsCorruptData(err error) bool {
	var ce *CorruptDataError
	return errors.As(err, &ce)
}
