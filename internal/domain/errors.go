package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidConfig         = errors.New("invalid config")
	ErrEmbeddingUnavailable  = errors.New("embedding unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrIndexModelMismatch    = errors.New("index model mismatch")
	ErrServiceUnavailable    = errors.New("service unavailable")
	ErrIndexNotLoaded        = errors.New("index not loaded")
)

// User-visible messages. Raw error detail never reaches callers.
const (
	MessageOutOfScope   = "I only answer department information."
	MessageInsufficient = "I couldn't find relevant information in the department document to answer your question."
	MessageUnavailable  = "The service is temporarily unavailable. Please try again."

	// MessageNoAnswer is the reply the answer prompt asks for when the
	// context does not cover the question.
	MessageNoAnswer = "The context does not contain the answer to this question."
)

// UserMessage maps an error to the message shown to callers.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIndexModelMismatch), errors.Is(err, ErrIndexNotLoaded):
		return "The document index is not ready. Please contact the administrator."
	default:
		return MessageUnavailable
	}
}

// IsCancelled reports whether err came from the caller abandoning the request.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
