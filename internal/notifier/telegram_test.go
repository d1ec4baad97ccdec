package notifier

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSend(t *testing.T) {
	var gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotChat = r.FormValue("chat_id")
		gotText = r.FormValue("text")
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok", "42", 3, 0, zerolog.Nop())
	n.baseURL = srv.URL

	require.NoError(t, n.Send("order filled"))
	assert.Equal(t, "42", gotChat)
	assert.Equal(t, "order filled", gotText)
}

func TestTelegramSendNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok", "42", 3, 0, zerolog.Nop())
	n.baseURL = srv.URL
	assert.Error(t, n.Send("nope"))
}

func TestTelegramSendWithRetryStopsOnSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok", "42", 5, 0, zerolog.Nop())
	n.baseURL = srv.URL

	require.NoError(t, n.SendWithRetry("eventually"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestTelegramSendWithRetryReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("tok", "42", 3, 0, zerolog.Nop())
	n.baseURL = srv.URL

	assert.Error(t, n.SendWithRetry("never"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = Noop{}
	assert.NoError(t, n.Send("x"))
	assert.NoError(t, n.SendWithRetry("x"))
}
