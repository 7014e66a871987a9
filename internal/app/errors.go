package app

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrChatNotFound     = errors.New("chat not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyDocument    = errors.New("document contains no text")
	ErrProviderFailure  = errors.New("completion provider failed")
	ErrTurnAborted      = errors.New("turn aborted by client")
	ErrStorage          = errors.New("storage failure")
)

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
