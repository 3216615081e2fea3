package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	got []interface{}
	err error
}

func (w *captureWriter) WriteJSON(v interface{}) error {
	w.got = append(w.got, v)
	return w.err
}

func TestSafeJSONParse(t *testing.T) {
	var v struct {
		Event string `json:"event"`
	}
	require.NoError(t, SafeJSONParse([]byte(`{"event":"chat"}`), &v))
	assert.Equal(t, "chat", v.Event)
	assert.Error(t, SafeJSONParse([]byte(`{`), &v))
}

func TestSendJSON(t *testing.T) {
	w := &captureWriter{}
	require.NoError(t, SendJSON(w, map[string]string{"event": "read"}))
	assert.Len(t, w.got, 1)

	w.err = errors.New("closed")
	assert.EqualError(t, SendJSON(w, "x"), "closed")
}
