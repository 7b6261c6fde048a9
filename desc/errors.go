package desc

import "fmt"

// DescriptorError is the error type returned when a pool cannot be built
// from the given file descriptors. It reports the file and, when known,
// the fully-qualified symbol that made the input invalid.
type DescriptorError struct {
	// File is the path of the file descriptor that could not be processed,
	// if known.
	File string
	// Symbol is the fully-qualified name of the offending element, if known.
	Symbol string
	// Underlying is the reason the descriptors were invalid.
	Underlying error
}

func (e *DescriptorError) Error() string {
	switch {
	case e.File != "" && e.Symbol != "":
		return fmt.Sprintf("file %q: symbol %q: %v", e.File, e.Symbol, e.Underlying)
	case e.File != "":
		return fmt.Sprintf("file %q: %v", e.File, e.Underlying)
	default:
		return e.Underlying.Error()
	}
}

// Unwrap returns the underlying cause of the error.
func (e *DescriptorError) Unwrap() error {
	return e.Underlying
}

func descErrorf(file, symbol, format string, args ...interface{}) error {
	return &DescriptorError{File: file, Symbol: symbol, Underlying: fmt.Errorf(format, args...)}
}
