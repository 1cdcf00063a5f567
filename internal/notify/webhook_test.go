package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWebhook_Notify_Posts_In_Channel_Message(t *testing.T) {
	req := require.New(t)
	received := make(chan webhookPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, time.Second, slog.Default())
	err := hook.Notify(context.Background(), "The train to Lunch has left the station with alice on it!")

	req.NoError(err)
	p := <-received
	req.Equal("The train to Lunch has left the station with alice on it!", p.Text)
	req.Equal("in_channel", p.ResponseType)
}

func TestWebhook_Notify_Reports_Bad_Status(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, time.Second, slog.Default()).Notify(context.Background(), "hi")

	req.ErrorContains(err, "unexpected status 403")
}

func TestWebhook_Notify_Times_Out(t *testing.T) {
	req := require.New(t)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := NewWebhook(srv.URL, 20*time.Millisecond, slog.Default()).Notify(context.Background(), "hi")

	req.ErrorIs(err, context.DeadlineExceeded)
}

func TestLog_Notify(t *testing.T) {
	require.NoError(t, NewLog(slog.Default()).Notify(context.Background(), "hi"))
}
