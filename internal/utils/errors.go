package utils

// AppError carries a machine-readable code alongside the message so
// callers can branch on the failure kind without string matching.
type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the engine
const (
	// Stored credential rejected; the caller must re-authenticate.
	ErrSessionInvalid = "SESSION_INVALID"

	// Action not permitted for this identity (editing or deleting a
	// comment owned by someone else). Primary enforcement is
	// server-side; the client check is advisory.
	ErrUnauthorized = "UNAUTHORIZED"

	// Server busy or unreachable. Safe to retry, no state corruption.
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"

	// Content length or value range violated. Resolved locally and
	// never sent to the network layer.
	ErrValidationRejected = "VALIDATION_REJECTED"

	// Target comment or article no longer exists; a snapshot refresh
	// is recommended.
	ErrNotFound = "NOT_FOUND"

	// A submission of the same kind is already in flight. The second
	// invocation is rejected synchronously, never queued.
	ErrSubmissionInFlight = "SUBMISSION_IN_FLIGHT"

	// The current identity has already rated this article.
	ErrAlreadyRated = "ALREADY_RATED"
)

func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewSessionInvalidError(reason string) *AppError {
	return &AppError{
		Code:    ErrSessionInvalid,
		Message: "Session invalid: " + reason,
	}
}

func NewValidationError(reason string) *AppError {
	return &AppError{
		Code:    ErrValidationRejected,
		Message: "Validation rejected: " + reason,
	}
}

func NewBackendUnavailableError(originalErr error) *AppError {
	return &AppError{
		Code:    ErrBackendUnavailable,
		Message: "Backend unavailable",
		Origin:  originalErr,
	}
}

// IsErrorCode checks whether err is an AppError with the given code.
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// IsSessionError reports whether the error means the session must be
// re-established, as opposed to a retry-later failure.
func IsSessionError(err error) bool {
	return IsErrorCode(err, ErrSessionInvalid)
}

// ErrorCode extracts the code, or empty string for non-AppErrors.
func ErrorCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ""
}
