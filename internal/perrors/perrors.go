// Package perrors models the parser's closed error taxonomy as a tagged-sum
// error type carrying enough context to locate the offending byte range and
// produce an erroneous_transactions row.
package perrors

import (
	"fmt"
	"maps"
)

// Kind is one member of the closed error taxonomy.
type Kind string

const (
	KindSerdeError                    Kind = "SerdeError"
	KindSighashFromSliceError         Kind = "SighashFromSliceError"
	KindDeserializeError              Kind = "DeserializeError"
	KindDeserializeInInstructionError Kind = "DeserializeInInstructionError"
	KindLimDeserializeInInstructionError Kind = "LimDeserializeInInstructionError"
	KindDeserializeFromBase58Error    Kind = "DeserializeFromBase58Error"
	KindParseError                    Kind = "ParseError"
	KindInvalidIndex                  Kind = "InvalidIndex"
	KindInvalidLength                 Kind = "InvalidLength"
	KindConvertingError                Kind = "ConvertingError"
	KindInvalidInstructionName        Kind = "InvalidInstructionName"
	KindSighashMatchError             Kind = "SighashMatchError"
	KindProgramAddressMatchError      Kind = "ProgramAddressMatchError"
	KindUnsupported                   Kind = "Unsupported"
)

// ParseInstructionError is the tagged-sum error raised anywhere in the
// decode/parse pipeline.
type ParseInstructionError struct {
	Kind    Kind
	Message string
	Cause   error

	context map[string]any
}

func (e *ParseInstructionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ParseInstructionError) Unwrap() error { return e.Cause }

// WithContext returns a copy of e with key=value merged into its context
// map, leaving the original untouched.
func (e *ParseInstructionError) WithContext(key string, value any) *ParseInstructionError {
	cloned := maps.Clone(e.context)
	if cloned == nil {
		cloned = make(map[string]any)
	}
	cloned[key] = value
	return &ParseInstructionError{Kind: e.Kind, Message: e.Message, Cause: e.Cause, context: cloned}
}

func (e *ParseInstructionError) Context(key string) any {
	if e.context == nil {
		return nil
	}
	return e.context[key]
}

func New(kind Kind, message string, cause error) *ParseInstructionError {
	return &ParseInstructionError{Kind: kind, Message: message, Cause: cause}
}

// IsProgramAddressMatchError reports whether err should be downgraded to
// the "opaque payload" fallback rather than aborting the whole transaction.
func IsProgramAddressMatchError(err error) bool {
	pe, ok := err.(*ParseInstructionError)
	return ok && pe.Kind == KindProgramAddressMatchError
}

func ErrInvalidIndex(site string, index, maxLen int) *ParseInstructionError {
	return New(KindInvalidIndex, fmt.Sprintf("index %d out of range (max %d)", index, maxLen), nil).
		WithContext("site", site).WithContext("index", index).WithContext("max_len", maxLen)
}

func ErrInvalidLength(site string, length, expected int) *ParseInstructionError {
	return New(KindInvalidLength, fmt.Sprintf("length %d, expected %d", length, expected), nil).
		WithContext("site", site).WithContext("len", length).WithContext("expected_len", expected)
}

func ErrProgramAddressMatch(program string) *ParseInstructionError {
	return New(KindProgramAddressMatchError, "program not in dispatch table", nil).WithContext("program", program)
}

func ErrSighashMatch(program string) *ParseInstructionError {
	return New(KindSighashMatchError, fmt.Sprintf("discriminator did not match any known variant of %s", program), nil)
}

func ErrUnsupported(reason string) *ParseInstructionError {
	return New(KindUnsupported, reason, nil)
}

// ConvertingError is raised on fixed-width array size mismatch at finalize.
type ConvertingError struct {
	Message string
}

func (e *ConvertingError) Error() string { return fmt.Sprintf("ConvertingError: %s", e.Message) }

// MainStorageError wraps a columnar-store write failure.
type MainStorageError struct {
	Op    string
	Cause error
}

func (e *MainStorageError) Error() string { return fmt.Sprintf("main storage %s: %v", e.Op, e.Cause) }
func (e *MainStorageError) Unwrap() error { return e.Cause }

// QueueError wraps a relational-queue operation failure.
type QueueError struct {
	Op    string
	Cause error
}

func (e *QueueError) Error() string { return fmt.Sprintf("queue %s: %v", e.Op, e.Cause) }
func (e *QueueError) Unwrap() error { return e.Cause }
