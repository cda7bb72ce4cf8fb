package observer

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/graydb/internal/database"
	"github.com/nerrad567/graydb/internal/infrastructure/mqtt"
)

// DefaultQueueSize is the number of events buffered ahead of the broker.
const DefaultQueueSize = 256

// Publisher is the subset of the MQTT client used here.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventPublisher forwards session events to MQTT.
type EventPublisher struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	logger Logger

	queue   chan database.Event
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ database.Observer = (*EventPublisher)(nil)

// NewEventPublisher starts the publishing goroutine. Call Close to stop it.
// A non-positive queueSize uses DefaultQueueSize.
func NewEventPublisher(pub Publisher, topics mqtt.Topics, qos byte, queueSize int, logger Logger) *EventPublisher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = noopLogger{}
	}

	p := &EventPublisher{
		pub:    pub,
		topics: topics,
		qos:    qos,
		logger: logger,
		queue:  make(chan database.Event, queueSize),
		done:   make(chan struct{}),
	}

	p.wg.Add(1)
	go p.run()
	return p
}

// Observe enqueues ev without blocking.
func (p *EventPublisher) Observe(_ context.Context, ev database.Event) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.queue <- ev:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.logger.Warn("event queue full, dropping query events", "dropped", n)
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (p *EventPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close drains queued events and stops the goroutine. Idempotent.
func (p *EventPublisher) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
	return nil
}

func (p *EventPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case ev := <-p.queue:
			p.publish(ev)
		case <-p.done:
			for {
				select {
				case ev := <-p.queue:
					p.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *EventPublisher) publish(ev database.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("encoding query event failed", "category", ev.Category, "error", err)
		return
	}

	topic := p.topics.QueryEvent(ev.Driver, string(ev.Category))
	if err := p.pub.Publish(topic, payload, p.qos, false); err != nil {
		p.logger.Debug("publishing query event failed", "topic", topic, "error", err)
	}
}
