package dynamic

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (or carried inside panics, for the non-Try forms)
// when an accessor is used incorrectly. These indicate programmer error, not
// malformed input.
var (
	// UnknownTagNumberError is returned when a ByNumber accessor names a tag
	// that is not a known field and not a registered extension.
	UnknownTagNumberError = errors.New("unknown tag number")
	// UnknownFieldNameError is returned when a ByName accessor names a field
	// that is not a known field and not a registered extension.
	UnknownFieldNameError = errors.New("unknown field name")
	// FieldIsNotMapError is returned when a map accessor is used with a
	// non-map field.
	FieldIsNotMapError = errors.New("field is not a map type")
	// FieldIsNotRepeatedError is returned when a repeated-field accessor is
	// used with a non-repeated field.
	FieldIsNotRepeatedError = errors.New("field is not repeated")
	// IndexOutOfRangeError is returned when a repeated-field accessor is
	// given an index beyond the end of the list.
	IndexOutOfRangeError = errors.New("index is out of range")
	// NumericOverflowError is returned when a numeric value does not fit the
	// field's type, such as a JSON number too large for an int32 field.
	NumericOverflowError = errors.New("numeric value is out of range")
)

// DecodeError is the error type for all failures to decode the binary wire
// format, from truncated or corrupt input to values that violate the
// schema, such as invalid UTF-8 in a string field.
type DecodeError struct {
	// MessageName is the fully-qualified name of the message being decoded.
	MessageName string
	// FieldName is the fully-qualified name of the field being decoded, if
	// the failure occurred within a known field.
	FieldName string
	// Underlying is the cause, such as io.ErrUnexpectedEOF or codec.ErrOverflow.
	Underlying error
}

func (e *DecodeError) Error() string {
	if e.FieldName != "" {
		return fmt.Sprintf("failed to decode %s: field %s: %v", e.MessageName, e.FieldName, e.Underlying)
	}
	return fmt.Sprintf("failed to decode %s: %v", e.MessageName, e.Underlying)
}

func (e *DecodeError) Unwrap() error {
	return e.Underlying
}

// EncodeError is the error type for all failures to produce the binary wire
// format. These arise from values that cannot be represented, such as a
// stored value whose type does not match its field's kind.
type EncodeError struct {
	MessageName string
	FieldName   string
	Underlying  error
}

func (e *EncodeError) Error() string {
	if e.FieldName != "" {
		return fmt.Sprintf("failed to encode %s: field %s: %v", e.MessageName, e.FieldName, e.Underlying)
	}
	return fmt.Sprintf("failed to encode %s: %v", e.MessageName, e.Underlying)
}

func (e *EncodeError) Unwrap() error {
	return e.Underlying
}

// JsonError is the error type for all failures to convert a message to or
// from its JSON representation.
type JsonError struct {
	MessageName string
	FieldName   string
	Underlying  error
}

func (e *JsonError) Error() string {
	if e.FieldName != "" {
		return fmt.Sprintf("bad JSON for %s: field %s: %v", e.MessageName, e.FieldName, e.Underlying)
	}
	return fmt.Sprintf("bad JSON for %s: %v", e.MessageName, e.Underlying)
}

func (e *JsonError) Unwrap() error {
	return e.Underlying
}

func decodeErrf(msgName, fieldName, format string, args ...interface{}) error {
	return &DecodeError{MessageName: msgName, FieldName: fieldName, Underlying: fmt.Errorf(format, args...)}
}

// wrapDecodeErr wraps err in a *DecodeError unless it already is one.
func wrapDecodeErr(msgName, fieldName string, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{MessageName: msgName, FieldName: fieldName, Underlying: err}
}

func encodeErrf(msgName, fieldName, format string, args ...interface{}) error {
	return &EncodeError{MessageName: msgName, FieldName: fieldName, Underlying: fmt.Errorf(format, args...)}
}

func jsonErrf(msgName, fieldName, format string, args ...interface{}) error {
	return &JsonError{MessageName: msgName, FieldName: fieldName, Underlying: fmt.Errorf(format, args...)}
}

// wrapJsonErr wraps err in a *JsonError unless it already is one.
func wrapJsonErr(msgName, fieldName string, err error) error {
	var je *JsonError
	if errors.As(err, &je) {
		return err
	}
	return &JsonError{MessageName: msgName, FieldName: fieldName, Underlying: err}
}
