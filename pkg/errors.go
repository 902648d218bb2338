package decoder

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ArgumentError reports an invalid parameter, such as a time rebin factor
// that is not a positive multiple of 32.
type ArgumentError struct {
	Op     string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid argument: %s", e.Op, e.Reason)
}

// PreconditionError reports input that cannot be processed as given, such as
// a slice stream without a leading time anchor.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Reason)
}

// DecodeError reports a malformed record in the byte stream.
type DecodeError struct {
	Record string
	Offset int64
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error decoding %s at byte %d: %s", e.Record, e.Offset, e.Reason)
}

// OverflowError reports a summed counter that no longer fits in 32 bits.
type OverflowError struct {
	Op    string
	Field string
	Index int
	Value uint64
}

func (e *OverflowError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s[%d] overflowed: %d > %d", e.Op, e.Field, e.Index, e.Value, uint64(MaxCounter))
	}
	return fmt.Sprintf("%s: %s overflowed: %d > %d", e.Op, e.Field, e.Value, uint64(MaxCounter))
}

// LookupError reports a label that is missing from a mapping table.
type LookupError struct {
	Table string
	Label int
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("label %d not found in %s", e.Label, e.Table)
}
