package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConversationGone indicates the submitted user message vanished
	// from the backend conversation while its reply was awaited
	ErrConversationGone = errors.New("conversation state lost upstream")
	// ErrReconcileTimeout indicates reconciliation gave up before the
	// assistant reply arrived
	ErrReconcileTimeout = errors.New("timed out waiting for assistant reply")
)
