package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/pkg/logging"
)

// Sender posts one message to a consultation.
type Sender interface {
	SendMessage(ctx context.Context, consultationID, body string) (*portal.Message, error)
}

// Delivery is the local lifecycle of an optimistic message.
type Delivery int

const (
	// DeliveryPending: fabricated locally, not yet acknowledged.
	DeliveryPending Delivery = iota
	// DeliverySent: acknowledged by the send call, not yet seen in a poll.
	DeliverySent
	// DeliveryConfirmed: present in a polled server list.
	DeliveryConfirmed
	// DeliveryFailed: the send call errored; the message stays visible so
	// the user can retry, it is never silently rolled back.
	DeliveryFailed
)

// ChatMessage is a message plus its local delivery state.
type ChatMessage struct {
	portal.Message
	Delivery Delivery
	LocalID  string
}

// Thread holds one consultation's visible message list. Server polls are
// reconciled by message id, never applied wholesale, so an optimistic
// message cannot transiently disappear while the server lags.
type Thread struct {
	consultationID string
	selfID         string
	selfRole       portal.Role
	logger         *logging.Logger
	now            func() time.Time

	mu       sync.Mutex
	messages []ChatMessage
}

// NewThread creates a thread for one consultation.
func NewThread(consultationID, selfID string, selfRole portal.Role, logger *logging.Logger) *Thread {
	if logger == nil {
		logger = logging.Default()
	}
	return &Thread{
		consultationID: consultationID,
		selfID:         selfID,
		selfRole:       selfRole,
		logger:         logger.Component("chat"),
		now:            time.Now,
	}
}

// Send optimistically appends a locally-fabricated message, then posts it.
// On acknowledgement the server id is adopted; on failure the message is
// marked failed and the error returned.
func (t *Thread) Send(ctx context.Context, sender Sender, body string) (ChatMessage, error) {
	if sender == nil {
		return ChatMessage{}, errors.New("chat: sender required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return ChatMessage{}, errors.New("chat: message body required")
	}

	localID := uuid.New().String()
	msg := ChatMessage{
		Message: portal.Message{
			ID:             localID,
			ConsultationID: t.consultationID,
			SenderID:       t.selfID,
			SenderRole:     t.selfRole,
			Body:           body,
			SentAt:         t.now(),
		},
		Delivery: DeliveryPending,
		LocalID:  localID,
	}

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	confirmed, err := sender.SendMessage(ctx, t.consultationID, body)
	if err != nil {
		t.setDelivery(localID, DeliveryFailed, "")
		return t.get(localID), err
	}

	t.setDelivery(localID, DeliverySent, confirmed.ID)
	return t.get(localID), nil
}

// Retry re-sends a failed message under its existing local id.
func (t *Thread) Retry(ctx context.Context, sender Sender, localID string) (ChatMessage, error) {
	t.mu.Lock()
	var body string
	found := false
	for _, m := range t.messages {
		if m.LocalID == localID && m.Delivery == DeliveryFailed {
			body = m.Body
			found = true
			break
		}
	}
	t.mu.Unlock()
	if !found {
		return ChatMessage{}, errors.New("chat: no failed message with that id")
	}

	confirmed, err := sender.SendMessage(ctx, t.consultationID, body)
	if err != nil {
		return t.get(localID), err
	}
	t.setDelivery(localID, DeliverySent, confirmed.ID)
	return t.get(localID), nil
}

// Reconcile applies a polled server message list. Server records win for
// ids they carry; local messages the server has not confirmed yet survive,
// ordered by send time. A pending message whose server id appears is folded
// into the confirmed record instead of duplicating.
func (t *Thread) Reconcile(serverMsgs []portal.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	serverIDs := make(map[string]struct{}, len(serverMsgs))
	for _, m := range serverMsgs {
		serverIDs[m.ID] = struct{}{}
	}

	out := make([]ChatMessage, 0, len(serverMsgs))
	for _, m := range serverMsgs {
		out = append(out, ChatMessage{Message: m, Delivery: DeliveryConfirmed})
	}

	for _, local := range t.messages {
		switch local.Delivery {
		case DeliveryConfirmed:
			// Already server-owned; the fresh list covers it.
		case DeliverySent:
			if _, ok := serverIDs[local.ID]; ok {
				continue
			}
			out = append(out, local)
		case DeliveryPending, DeliveryFailed:
			out = append(out, local)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	t.messages = out
}

// Messages returns a copy of the visible list.
func (t *Thread) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Thread) setDelivery(localID string, d Delivery, serverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if t.messages[i].LocalID == localID {
			t.messages[i].Delivery = d
			if serverID != "" {
				t.messages[i].ID = serverID
			}
			return
		}
	}
}

func (t *Thread) get(localID string) ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.messages {
		if m.LocalID == localID {
			return m
		}
	}
	return ChatMessage{}
}
