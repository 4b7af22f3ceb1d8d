// Package alert consumes fraud alert events and fans them out to
// connected stream listeners.
package alert

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Notification is the shape delivered to stream listeners.
type Notification struct {
	ID         string            `json:"id"`
	Message    string            `json:"message"`
	Case       *domain.FraudCase `json:"case,omitempty"`
	ReceivedAt time.Time         `json:"receivedAt"`
}

// Dispatcher subscribes to the fraud alert topic, keeps a bounded history
// of recent alerts, and broadcasts each alert to registered listeners.
type Dispatcher struct {
	bus domain.EventBus

	mu        sync.RWMutex
	recent    []Notification
	maxRecent int
	listeners map[string]chan Notification

	sub    domain.Subscription
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher. maxRecent bounds the retained history.
func NewDispatcher(bus domain.EventBus, maxRecent int) *Dispatcher {
	if maxRecent <= 0 {
		maxRecent = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		bus:       bus,
		maxRecent: maxRecent,
		listeners: make(map[string]chan Notification),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the fraud alert topic.
func (d *Dispatcher) Start() error {
	sub, err := d.bus.Subscribe(d.ctx, domain.TopicFraudAlert, d.handleMessage)
	if err != nil {
		return err
	}
	d.sub = sub

	slog.Info("alert dispatcher started", "topic", domain.TopicFraudAlert)
	return nil
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *domain.Message) error {
	var event domain.AlertEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse alert event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	n := Notification{
		ID:         msg.ID,
		Message:    event.Message,
		Case:       event.Case,
		ReceivedAt: time.Now(),
	}

	d.mu.Lock()
	d.recent = append(d.recent, n)
	if len(d.recent) > d.maxRecent {
		d.recent = d.recent[len(d.recent)-d.maxRecent:]
	}
	// Stop closes listener channels under this lock, so sends must stay
	// under it too or an in-flight alert can hit a closed channel. The
	// select never blocks.
	for _, ch := range d.listeners {
		select {
		case ch <- n:
		default:
			// Listener not keeping up, drop for that listener
		}
	}
	count := len(d.listeners)
	d.mu.Unlock()

	slog.Info("fraud alert dispatched",
		"alert_id", n.ID,
		"listener_count", count,
	)

	return nil
}

// Listen registers a listener channel. The returned cancel function must be
// called when the listener disconnects.
func (d *Dispatcher) Listen(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	id := uuid.New().String()
	ch := make(chan Notification, buffer)

	d.mu.Lock()
	d.listeners[id] = ch
	d.mu.Unlock()

	return ch, func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// Recent returns a copy of the retained alert history, newest last.
func (d *Dispatcher) Recent() []Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Notification, len(d.recent))
	copy(out, d.recent)
	return out
}

// ListenerCount returns the number of connected listeners.
func (d *Dispatcher) ListenerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// Stop unsubscribes and disconnects all listeners.
func (d *Dispatcher) Stop() error {
	d.cancel()

	if d.sub != nil {
		if err := d.sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", d.sub.Topic(),
				"error", err,
			)
		}
		d.sub = nil
	}

	d.mu.Lock()
	for id, ch := range d.listeners {
		close(ch)
		delete(d.listeners, id)
	}
	d.mu.Unlock()

	slog.Info("alert dispatcher stopped")
	return nil
}
