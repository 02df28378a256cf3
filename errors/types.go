package errors

// HTTP error constructors for the codes this service actually returns.

func BadRequest(format string, args ...any) *Error {
	return New(400, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(401, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(403, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(404, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(409, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(500, format, args...)
}

func ServiceUnavailable(format string, args ...any) *Error {
	return New(503, format, args...)
}

// Predicates over the code carried by an error chain.

func IsBadRequest(err error) bool {
	return Code(err) == 400
}

func IsUnauthorized(err error) bool {
	return Code(err) == 401
}

func IsForbidden(err error) bool {
	return Code(err) == 403
}

func IsNotFound(err error) bool {
	return Code(err) == 404
}

func IsConflict(err error) bool {
	return Code(err) == 409
}

func IsServiceUnavailable(err error) bool {
	return Code(err) == 503
}
