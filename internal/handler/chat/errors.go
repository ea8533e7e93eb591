package chat

import "net/http"

// ErrorKind classifies a failed chat request.
type ErrorKind int

const (
	// KindValidation covers missing fields, empty content and undecodable images.
	KindValidation ErrorKind = iota + 1
	// KindUpstream covers any failure after validation, model calls included.
	KindUpstream
)

const (
	msgInvalidBody    = "Invalid request body."
	msgMissingSession = "Message and sessionId are required"
	msgMissingContent = "A message or an image is required."
	msgInvalidImage   = "Invalid or corrupted image file."
	msgImageTooLarge  = "Image file is too large."
	msgUpstream       = "Failed to get a response from the AI."
)

// Status maps the kind to its HTTP status code.
func (k ErrorKind) Status() int {
	if k == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// RequestError carries the client-facing message separately from the cause,
// which is only ever logged.
type RequestError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func validationError(message string, err error) *RequestError {
	return &RequestError{Kind: KindValidation, Message: message, Err: err}
}

func upstreamError(err error) *RequestError {
	return &RequestError{Kind: KindUpstream, Message: msgUpstream, Err: err}
}
