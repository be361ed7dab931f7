package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// CodeTimeout is reported when a remote call exceeds its deadline.
const CodeTimeout = "Timeout"

// ValidationError means the request was rejected before any remote call.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError carries the remote service message and code unchanged.
type UpstreamError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// upstreamError classifies a failed remote call.
func upstreamError(op string, err error) *UpstreamError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Op: op, Code: CodeTimeout, Message: "request timed out", Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Op: op, Code: apiErr.ErrorCode(), Message: apiErr.ErrorMessage(), Err: err}
	}

	return &UpstreamError{Op: op, Message: err.Error(), Err: err}
}
