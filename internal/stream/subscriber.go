package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/careloop/telehealth-client/pkg/logging"
)

// Event is one collection-update notification pushed by the server. Slice
// names match the poller names registered with the sync engine.
type Event struct {
	Slice string `json:"slice"`
	Kind  string `json:"kind,omitempty"`
}

// Controller is the slice of the sync engine the subscriber drives. While
// the stream is healthy the pollers stay paused and refreshes are
// event-driven; on stream loss polling resumes.
type Controller interface {
	PauseAll()
	ResumeAll()
	Refresh(ctx context.Context, name string) error
}

// Subscriber maintains a WebSocket subscription to the portal's push
// channel, reconnecting with backoff until its context is cancelled.
type Subscriber struct {
	url       string
	ctrl      Controller
	logger    *logging.Logger
	dialer    *websocket.Dialer
	baseDelay time.Duration
	maxDelay  time.Duration
	connected atomic.Bool
}

// NewSubscriber creates a subscriber for the given stream URL.
func NewSubscriber(url string, ctrl Controller, logger *logging.Logger) (*Subscriber, error) {
	if url == "" {
		return nil, errors.New("stream: url required")
	}
	if ctrl == nil {
		return nil, errors.New("stream: controller required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Subscriber{
		url:       url,
		ctrl:      ctrl,
		logger:    logger.Component("stream"),
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		baseDelay: time.Second,
		maxDelay:  30 * time.Second,
	}, nil
}

// Connected reports whether a subscription is currently live.
func (s *Subscriber) Connected() bool { return s.connected.Load() }

// Run connects and consumes events until ctx is cancelled. Each connection
// loss resumes polling and triggers a reconnect attempt with exponential
// backoff; a successful connection resets the backoff.
func (s *Subscriber) Run(ctx context.Context) {
	delay := s.baseDelay
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.logger.Warn("stream dial failed", "url", s.url, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, s.maxDelay)
			continue
		}

		delay = s.baseDelay
		s.logger.Info("stream connected", "url", s.url)
		s.connected.Store(true)
		s.ctrl.PauseAll()

		err = s.consume(ctx, conn)
		conn.Close()

		s.connected.Store(false)
		s.ctrl.ResumeAll()
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("stream lost, polling resumed", "error", err)
	}
}

func (s *Subscriber) consume(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			s.logger.Warn("stream event malformed", "error", err)
			continue
		}
		if event.Slice == "" {
			continue
		}
		if err := s.ctrl.Refresh(ctx, event.Slice); err != nil {
			s.logger.Warn("stream refresh failed", "slice", event.Slice, "error", err)
		}
	}
}
