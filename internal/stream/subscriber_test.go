package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu        sync.Mutex
	paused    int
	resumed   int
	refreshed []string
}

func (f *fakeController) PauseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
}

func (f *fakeController) ResumeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
}

func (f *fakeController) Refresh(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, name)
	return nil
}

func (f *fakeController) snapshot() (int, int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused, f.resumed, append([]string(nil), f.refreshed...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func streamServer(t *testing.T, serve func(*websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscriberPausesPollingAndDispatchesEvents(t *testing.T) {
	hold := make(chan struct{})
	url := streamServer(t, func(conn *websocket.Conn) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"slice":"consultations","kind":"updated"}`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"slice":"prescriptions"}`)))
		<-hold
	})
	defer close(hold)

	ctrl := &fakeController{}
	sub, err := NewSubscriber(url, ctrl, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sub.Run(ctx)
		close(done)
	}()

	waitFor(t, 2*time.Second, func() bool {
		_, _, refreshed := ctrl.snapshot()
		return len(refreshed) == 2
	})
	paused, _, refreshed := ctrl.snapshot()
	assert.Equal(t, 1, paused)
	assert.Equal(t, []string{"consultations", "prescriptions"}, refreshed)
	assert.True(t, sub.Connected())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop on cancel")
	}
}

func TestSubscriberResumesPollingOnStreamLoss(t *testing.T) {
	var conns int
	var mu sync.Mutex
	url := streamServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		conns++
		first := conns == 1
		mu.Unlock()
		if first {
			return // drop immediately
		}
		conn.ReadMessage()
	})

	ctrl := &fakeController{}
	sub, err := NewSubscriber(url, ctrl, nil)
	require.NoError(t, err)
	sub.baseDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	waitFor(t, 2*time.Second, func() bool {
		paused, resumed, _ := ctrl.snapshot()
		return paused >= 2 && resumed >= 1
	})
}

func TestSubscriberRetriesFailedDial(t *testing.T) {
	ctrl := &fakeController{}
	sub, err := NewSubscriber("ws://127.0.0.1:1/stream", ctrl, nil)
	require.NoError(t, err)
	sub.baseDelay = 5 * time.Millisecond
	sub.maxDelay = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	sub.Run(ctx)

	paused, resumed, _ := ctrl.snapshot()
	assert.Zero(t, paused)
	assert.Zero(t, resumed)
	assert.False(t, sub.Connected())
}

func TestNewSubscriberValidation(t *testing.T) {
	_, err := NewSubscriber("", &fakeController{}, nil)
	assert.Error(t, err)

	_, err = NewSubscriber("ws://x/stream", nil, nil)
	assert.Error(t, err)
}
