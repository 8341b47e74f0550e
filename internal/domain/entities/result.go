package entities

// ResultError is the error half of a Result. Kind is the sentinel the error
// unwraps to, so callers can use errors.Is instead of matching messages.
type ResultError struct {
	Message    string
	StatusCode *int
	Kind       error
}

func (e *ResultError) Error() string {
	return e.Message
}

func (e *ResultError) Unwrap() error {
	return e.Kind
}

// Result is the Success/Error envelope returned by every repository read.
type Result[T any] struct {
	data T
	err  *ResultError
}

// Success wraps data in a successful Result.
func Success[T any](data T) Result[T] {
	return Result[T]{data: data}
}

// Failure builds an Error result. statusCode may be nil.
func Failure[T any](message string, statusCode *int) Result[T] {
	return Result[T]{err: &ResultError{Message: message, StatusCode: statusCode}}
}

// FailureOf builds an Error result that unwraps to kind.
func FailureOf[T any](kind error, message string) Result[T] {
	return Result[T]{err: &ResultError{Message: message, Kind: kind}}
}

// NotFound is the Result returned for a reminder lookup miss.
func NotFound[T any]() Result[T] {
	return FailureOf[T](ErrReminderNotFound, ReminderNotFoundMessage)
}

// IsSuccess reports whether the result carries data.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// Data returns the payload and whether the result is a success.
func (r Result[T]) Data() (T, bool) {
	return r.data, r.err == nil
}

// Err returns the error half of the result, or nil on success.
func (r Result[T]) Err() *ResultError {
	return r.err
}

// Unwrap converts the result into Go's (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.data, nil
}
