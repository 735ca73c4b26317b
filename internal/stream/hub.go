// Package stream provides fan-out distribution of published market views.
package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aakash-code/upstock-oi-tracker/internal/models"
)

// HubConfig holds configuration for the view hub.
type HubConfig struct {
	// BufferSize is the size of the internal view channel buffer.
	BufferSize int
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
	// BroadcastTimeout is the maximum time to wait when sending to a
	// subscriber before the view is dropped for it.
	BroadcastTimeout time.Duration
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:           16,
		SubscriberBufferSize: 4,
		BroadcastTimeout:     10 * time.Millisecond,
	}
}

// Hub distributes published MarketViews to multiple consumers. Views from
// the cycle runners fan out to subscribers via channels; a slow consumer
// loses views rather than blocking a publish.
type Hub struct {
	config      HubConfig
	mu          sync.RWMutex
	subscribers map[string][]*Subscriber
	viewChan    chan *models.MarketView
	done        chan struct{}
	started     bool

	// Metrics
	metricsMu      sync.RWMutex
	viewsReceived  uint64
	viewsBroadcast uint64
	viewsDropped   uint64
}

// Subscriber represents a channel subscriber with metadata.
type Subscriber struct {
	ID           string
	Topic        string
	Channel      chan *models.MarketView
	DroppedCount int
	CreatedAt    time.Time
}

// Topic returns the hub topic for an (instrument, expiry) pair.
func Topic(instrument string, expiry time.Time) string {
	return fmt.Sprintf("%s|%s", instrument, expiry.Format("2006-01-02"))
}

// NewHub creates a new view hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a new view hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	return &Hub{
		config:      config,
		subscribers: make(map[string][]*Subscriber),
		viewChan:    make(chan *models.MarketView, config.BufferSize),
		done:        make(chan struct{}),
	}
}

// Start begins the hub's distribution loop.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go h.broadcastLoop(ctx)
}

// Stop shuts down the distribution loop and closes subscriber channels.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return
	}
	h.started = false
	close(h.done)

	for topic, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub.Channel)
		}
		delete(h.subscribers, topic)
	}
}

// Publish hands a view to the hub. Non-blocking: if the internal buffer is
// full the view is dropped and counted.
func (h *Hub) Publish(view *models.MarketView) {
	h.metricsMu.Lock()
	h.viewsReceived++
	h.metricsMu.Unlock()

	select {
	case h.viewChan <- view:
	default:
		h.metricsMu.Lock()
		h.viewsDropped++
		h.metricsMu.Unlock()
	}
}

// Subscribe returns a channel receiving views for the pair.
func (h *Hub) Subscribe(instrument string, expiry time.Time) <-chan *models.MarketView {
	topic := Topic(instrument, expiry)
	sub := &Subscriber{
		ID:        fmt.Sprintf("%s-%d", topic, time.Now().UnixNano()),
		Topic:     topic,
		Channel:   make(chan *models.MarketView, h.config.SubscriberBufferSize),
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	h.subscribers[topic] = append(h.subscribers[topic], sub)
	h.mu.Unlock()

	return sub.Channel
}

// Unsubscribe removes all subscribers for the pair and closes their
// channels.
func (h *Hub) Unsubscribe(instrument string, expiry time.Time) {
	topic := Topic(instrument, expiry)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers[topic] {
		close(sub.Channel)
	}
	delete(h.subscribers, topic)
}

func (h *Hub) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case view := <-h.viewChan:
			h.broadcast(view)
		}
	}
}

func (h *Hub) broadcast(view *models.MarketView) {
	topic := Topic(view.Instrument, view.Expiry)

	h.mu.RLock()
	subs := h.subscribers[topic]
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.Channel <- view:
			h.metricsMu.Lock()
			h.viewsBroadcast++
			h.metricsMu.Unlock()
		case <-time.After(h.config.BroadcastTimeout):
			sub.DroppedCount++
			h.metricsMu.Lock()
			h.viewsDropped++
			h.metricsMu.Unlock()
		}
	}
}

// Metrics returns received, broadcast and dropped view counts.
func (h *Hub) Metrics() (received, broadcast, dropped uint64) {
	h.metricsMu.RLock()
	defer h.metricsMu.RUnlock()
	return h.viewsReceived, h.viewsBroadcast, h.viewsDropped
}
