package events

import (
	"log/slog"
	"sync"
	"time"

	"content_syncer/internal/domain"
)

type transport interface {
	publish(ev Event) error
}

// Dispatcher decouples the write path from the broker. Publish calls are a
// non-blocking send into a bounded queue drained by a single goroutine; when
// the queue is full or the broker is down the event is dropped and logged.
// The read side heals via cache TTL, so dropped events cost staleness only.
type Dispatcher struct {
	transport transport
	queue     chan Event
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func NewDispatcher(t transport, bufferSize int, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		transport: t,
		queue:     make(chan Event, bufferSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.With("component", "event_dispatcher"),
	}
	go d.run()
	return d
}

func (d *Dispatcher) PublishContentUpdated(contentID int64, action domain.ContentAction) {
	d.enqueue(Event{
		Kind:      KindContentUpdated,
		ContentID: contentID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	})
}

func (d *Dispatcher) PublishContentDeleted(contentID int64) {
	d.enqueue(Event{
		Kind:      KindContentDeleted,
		ContentID: contentID,
		Timestamp: time.Now().UTC(),
	})
}

func (d *Dispatcher) PublishBulkInvalidation() {
	d.enqueue(Event{
		Kind:      KindContentBulkUpdated,
		Timestamp: time.Now().UTC(),
	})
}

func (d *Dispatcher) enqueue(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("event queue full, dropping event",
			"kind", ev.Kind,
			"content_id", ev.ContentID,
		)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case ev := <-d.queue:
			if err := d.transport.publish(ev); err != nil {
				d.logger.Warn("event publish failed",
					"kind", ev.Kind,
					"content_id", ev.ContentID,
					"error", err,
				)
			}
		case <-d.stop:
			return
		}
	}
}

// Close stops the drain loop. Events still queued are discarded.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.stop)
	})
	<-d.done
}
