package conversation

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrFetchFailure marks a history load that could not complete.
	ErrFetchFailure = errors.New("history fetch failed")
	// ErrMalformedEvent marks an inbound event missing classification fields.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrDuplicateMessage marks a message whose id is already in the store.
	ErrDuplicateMessage = errors.New("duplicate message")
	// ErrNoConversation is returned by Send when no conversation is open.
	ErrNoConversation = errors.New("no active conversation")
	// ErrInvalidConversation is returned by Open for an empty id or unknown type.
	ErrInvalidConversation = errors.New("invalid conversation")
	// ErrNoHistory is returned by Open when the engine has no history fetcher.
	ErrNoHistory = errors.New("no history fetcher configured")
)

// FetchError carries the cause of a failed history load. It matches ErrFetchFailure.
type FetchError struct {
	ConversationID string
	Err            error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: conversation %s: %v", ErrFetchFailure, e.ConversationID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailure }
