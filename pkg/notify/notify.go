package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"livechat/pkg/logger"
	"livechat/pkg/models"
	"livechat/pkg/store"
	"livechat/pkg/telemetry"
)

// Publisher delivers one notification event to the outbound messaging
// provider. Implementations may fail; the dispatcher swallows those failures.
type Publisher interface {
	Publish(channel string, payload []byte) error
}

// LogPublisher is the fallback provider used when no messaging URL is
// configured. Events are logged and counted as sent.
type LogPublisher struct{}

func (LogPublisher) Publish(channel string, payload []byte) error {
	logger.Info("notification_local", "channel", channel, "payload", string(payload))
	return nil
}

// Dispatcher is the fire-and-forget notification path. Enqueue hands the
// event to a bounded queue and returns immediately; a single worker drains
// the queue, records the event in the store and publishes it. A slow or
// broken provider can therefore never delay or fail the caller: when the
// queue is full the event is dropped and counted.
type Dispatcher struct {
	pub  Publisher
	ch   chan models.Notification
	done chan struct{}

	// mu guards closed and the channel send so Dispatch after Close drops
	// the event instead of panicking on a closed channel.
	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts the dispatch worker. queueSize bounds the number of
// in-flight events.
func NewDispatcher(pub Publisher, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	d := &Dispatcher{
		pub:  pub,
		ch:   make(chan models.Notification, queueSize),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch queues a notification. It never blocks and never returns an
// error; delivery is best-effort by contract.
func (d *Dispatcher) Dispatch(target, message, channel string) {
	n := models.Notification{
		ID:      uuid.NewString(),
		Target:  target,
		Message: message,
		Channel: channel,
		TS:      time.Now().UTC().UnixNano(),
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		telemetry.NotificationsDropped.Inc()
		logger.Warn("notification_dropped", "id", n.ID, "channel", channel, "reason", "dispatcher_closed")
		return
	}
	select {
	case d.ch <- n:
	default:
		telemetry.NotificationsDropped.Inc()
		logger.Warn("notification_dropped", "id", n.ID, "channel", channel, "reason", "queue_full")
	}
	d.mu.Unlock()
}

// Close stops the worker after the queue drains. Close is idempotent and
// Dispatch calls arriving after it are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for n := range d.ch {
		// record the event before publishing; the log is an audit trail,
		// not a delivery guarantee
		if b, err := json.Marshal(n); err == nil {
			if err := store.SaveKey("notify:"+n.ID, b); err != nil {
				logger.Warn("notification_log_failed", "id", n.ID, "error", err)
			}
		}
		payload, err := json.Marshal(n)
		if err != nil {
			logger.Error("notification_encode_failed", "id", n.ID, "error", err)
			continue
		}
		if err := d.pub.Publish(n.Channel, payload); err != nil {
			telemetry.NotificationsFailed.Inc()
			logger.Warn("notification_publish_failed", "id", n.ID, "channel", n.Channel, "error", err)
			continue
		}
		telemetry.NotificationsSent.Inc()
		logger.Debug("notification_published", "id", n.ID, "channel", n.Channel)
	}
}
