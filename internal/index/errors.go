package index

import "github.com/cockroachdb/errors"

// ReturnCode is the externally-visible status of an index operation,
// matching the integer values of the original IX return-code table.
type ReturnCode int

const (
	Success           ReturnCode = 0
	RecordNotFound    ReturnCode = 1
	KeyExists         ReturnCode = 2
	InvalidOperation  ReturnCode = -1
	FileOpError       ReturnCode = -2
	FileNotFound      ReturnCode = -3
	AttributeNotFound ReturnCode = -4

	// EOF shares INVALID_OPERATION's numeric value; scans are the only
	// code path that ever produce it, so callers disambiguate by call
	// site rather than by value (spec.md §9 leaves this unspecified).
	EOF ReturnCode = -1
)

func (c ReturnCode) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case RecordNotFound:
		return "RECORD_NOT_FOUND"
	case KeyExists:
		return "KEY_EXISTS"
	case InvalidOperation:
		return "INVALID_OPERATION"
	case FileOpError:
		return "FILE_OP_ERROR"
	case FileNotFound:
		return "FILE_NOT_FOUND"
	case AttributeNotFound:
		return "ATTRIBUTE_NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

func (c ReturnCode) Error() string { return c.String() }

// codeErr pairs a sentinel error with the ReturnCode it maps to, so
// callers can both errors.Is a sentinel and recover the integer code
// with Code(err).
type codeErr struct {
	code ReturnCode
	msg  string
}

func (e *codeErr) Error() string { return e.msg }

func newCodeErr(code ReturnCode, msg string) error {
	return &codeErr{code: code, msg: msg}
}

var (
	// ErrRecordNotFound is returned by DeleteEntry when there is no
	// exact (key,rid) match. A scan that matches nothing returns ErrEOF
	// from its first GetNextEntry.
	ErrRecordNotFound = newCodeErr(RecordNotFound, "index: record not found")

	// ErrKeyExists is returned by InsertEntry when the exact (key, rid)
	// pair is already present.
	ErrKeyExists = newCodeErr(KeyExists, "index: key already exists")

	// ErrInvalidOperation covers handle misuse: operating on a closed
	// or poisoned handle, or a rejected varchar key shape.
	ErrInvalidOperation = newCodeErr(InvalidOperation, "index: invalid operation")

	// ErrFileOpError wraps an underlying paged-file I/O failure.
	ErrFileOpError = newCodeErr(FileOpError, "index: file operation failed")

	// ErrFileNotFound is returned when the index file is missing.
	ErrFileNotFound = newCodeErr(FileNotFound, "index: file not found")

	// ErrAttributeNotFound is returned when the catalog has no entry
	// for the requested (table, attribute) pair.
	ErrAttributeNotFound = newCodeErr(AttributeNotFound, "index: attribute not found")

	// ErrEOF is returned by a scan's Next once it is exhausted.
	ErrEOF = newCodeErr(EOF, "index: scan exhausted")
)

// Code extracts the ReturnCode associated with err, or Success if err
// is nil. Errors built with errors.Mark (e.g. a wrapped pager I/O
// failure marked as ErrFileOpError) are recognized via errors.Is
// rather than a type assertion, since Mark preserves the original
// error's concrete type. Unrecognized errors map to InvalidOperation.
func Code(err error) ReturnCode {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrKeyExists):
		return KeyExists
	case errors.Is(err, ErrRecordNotFound):
		return RecordNotFound
	case errors.Is(err, ErrFileOpError):
		return FileOpError
	case errors.Is(err, ErrFileNotFound):
		return FileNotFound
	case errors.Is(err, ErrAttributeNotFound):
		return AttributeNotFound
	case errors.Is(err, ErrEOF):
		return EOF
	default:
		return InvalidOperation
	}
}
