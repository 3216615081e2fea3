package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatroom/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderReportsInFlight(t *testing.T) {
	release := make(chan struct{})
	l := NewLoader(historyFunc(func(ctx context.Context, req models.HistoryRequest) ([]models.Message, error) {
		<-release
		return []models.Message{{ID: "m1"}}, nil
	}))
	assert.False(t, l.InFlight())

	done := make(chan []models.Message)
	go func() {
		msgs, _ := l.Load(context.Background(), models.HistoryRequest{ConversationID: "room-1"})
		done <- msgs
	}()

	require.Eventually(t, l.InFlight, time.Second, 5*time.Millisecond)
	close(release)
	msgs := <-done
	assert.Len(t, msgs, 1)
	assert.False(t, l.InFlight())
}

func TestLoaderWrapsFailure(t *testing.T) {
	cause := errors.New("connection refused")
	var got models.HistoryRequest
	l := NewLoader(historyFunc(func(ctx context.Context, req models.HistoryRequest) ([]models.Message, error) {
		got = req
		return nil, cause
	}))

	req := models.HistoryRequest{UserID: "u1", ConversationID: "u2", Type: models.ChatTypeDirect}
	_, err := l.Load(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, req, got)
	assert.ErrorIs(t, err, ErrFetchFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "conversation u2")
}
