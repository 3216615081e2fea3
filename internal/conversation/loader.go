package conversation

import (
	"context"
	"sync/atomic"

	"chatroom/internal/models"
)

// HistoryFetcher performs the remote history call.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, req models.HistoryRequest) ([]models.Message, error)
}

// Loader runs one-shot history fetches and reports whether one is in flight.
type Loader struct {
	fetcher  HistoryFetcher
	inFlight atomic.Int32
}

func NewLoader(f HistoryFetcher) *Loader {
	return &Loader{fetcher: f}
}

// Load blocks until the fetch resolves. Failures come back as *FetchError.
// There is no retry.
func (l *Loader) Load(ctx context.Context, req models.HistoryRequest) ([]models.Message, error) {
	l.inFlight.Add(1)
	defer l.inFlight.Add(-1)

	msgs, err := l.fetcher.FetchHistory(ctx, req)
	if err != nil {
		return nil, &FetchError{ConversationID: req.ConversationID, Err: err}
	}
	return msgs, nil
}

func (l *Loader) InFlight() bool {
	return l.inFlight.Load() > 0
}
