package errors

import (
	"fmt"
	"strings"
)

// UserFriendlyError provides actionable error messages for end users.
// Only user-initiated actions (upload, paste, delete, folder add/remove)
// surface these; background calls log and drop their failures.
type UserFriendlyError struct {
	Message    string // User-facing message explaining what went wrong
	Suggestion string // Actionable steps to fix the issue
	Details    error  // Original error for debugging/logs
}

func (e *UserFriendlyError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString("How to fix:\n")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

func (e *UserFriendlyError) Unwrap() error {
	return e.Details
}

// NewFriendlyError creates a user-friendly error
func NewFriendlyError(message, suggestion string) *UserFriendlyError {
	return &UserFriendlyError{Message: message, Suggestion: suggestion}
}

// WithDetails adds the underlying error details
func (e *UserFriendlyError) WithDetails(err error) *UserFriendlyError {
	e.Details = err
	return e
}

// NetworkError translates transport failures from the gallery API.
func NetworkError(err error) *UserFriendlyError {
	msg := "Cannot reach the gallery server"
	suggestion := "Check that the server is running (imagegallery serve) and that server.base_url in your config points at it"

	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "connection refused") {
			msg = "Gallery server refused the connection"
		}
		if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
			msg = "Gallery server timed out"
			suggestion = "The server is slow or unreachable. Increase network.timeout_seconds or try again."
		}
	}

	return &UserFriendlyError{Message: msg, Suggestion: suggestion, Details: err}
}

// ClipboardError covers the paste path: permission denials get a specific
// message pointing at the alternate input path.
func ClipboardError(err error) *UserFriendlyError {
	msg := "Could not read the clipboard"
	suggestion := "Copy an image file path and try again, or use the upload action instead"

	if err != nil {
		errStr := strings.ToLower(err.Error())
		if strings.Contains(errStr, "denied") || strings.Contains(errStr, "permission") {
			msg = "Clipboard access was denied"
			suggestion = "Grant clipboard access to your terminal, or use the upload action to add the image from disk"
		}
	}

	return &UserFriendlyError{Message: msg, Suggestion: suggestion, Details: err}
}

// NotAnImageError flags a skipped non-image file during upload. Not fatal to
// a batch; callers log it and continue.
func NotAnImageError(name string) *UserFriendlyError {
	return &UserFriendlyError{
		Message:    fmt.Sprintf("Skipped %q: not a supported image", name),
		Suggestion: "Supported formats: png, jpg, jpeg, webp, bmp, tiff",
	}
}

// FolderError covers registry add/remove failures.
func FolderError(path string, err error) *UserFriendlyError {
	msg := fmt.Sprintf("Folder operation failed for %s", path)
	suggestion := "Check the path exists and is a directory"

	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "default") {
			msg = "The default input folder cannot be removed"
			suggestion = "Remove only folders you added yourself"
		}
		if strings.Contains(errStr, "already") {
			msg = fmt.Sprintf("Folder already registered: %s", path)
			suggestion = "Pick it from the folder list instead of adding it again"
		}
	}

	return &UserFriendlyError{Message: msg, Suggestion: suggestion, Details: err}
}

// DatabaseError returns state-store errors with recovery suggestions.
func DatabaseError(err error) *UserFriendlyError {
	msg := "State database error"
	suggestion := "Check that general.data_root is writable"

	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "locked") {
			msg = "State database is locked by another process"
			suggestion = "Close other imagegallery instances and try again"
		}
	}

	return &UserFriendlyError{Message: msg, Suggestion: suggestion, Details: err}
}
