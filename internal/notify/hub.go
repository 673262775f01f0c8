// Package notify fans out data-change events to interested listeners.
//
// Listeners subscribe to an address path ("items" or "items/3"). A change to
// an address reaches subscribers of that address, subscribers of any
// descendant address, and subscribers of an ancestor address that asked for
// descendants. Delivery is fire-and-forget: a full subscriber buffer drops
// the event and never blocks or fails the publisher.
package notify

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscription channel capacity used when NewHub is
// given a non-positive size.
const DefaultBuffer = 16

// ErrEmptyAddress is returned by Subscribe for a blank address.
var ErrEmptyAddress = errors.New("notify: empty address")

// Kind identifies the mutation behind a change.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Change describes one successful mutation.
type Change struct {
	ID      uuid.UUID `json:"id"`
	Address string    `json:"address"` // path that was mutated, e.g. items/3
	Table   string    `json:"table"`
	Kind    Kind      `json:"kind"`
	Count   int64     `json:"count"` // rows affected
	Origin  string    `json:"origin,omitempty"`
	At      time.Time `json:"at"`
}

// Observer receives every published change synchronously, before
// subscription delivery. Implementations must not block.
type Observer interface {
	OnChange(c Change)
}

// Hub routes published changes to subscriptions and observers.
type Hub struct {
	mu        sync.RWMutex
	subs      map[uint64]*Subscription
	observers []Observer
	nextID    uint64
	buffer    int

	published atomic.Uint64
	dropped   atomic.Uint64
	logger    *slog.Logger
}

// NewHub creates a hub whose subscriptions buffer up to buffer changes.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers interest in addr. With descendants set, changes to
// any path beneath addr are delivered too.
func (h *Hub) Subscribe(addr string, descendants bool) (*Subscription, error) {
	addr = strings.Trim(addr, "/")
	if addr == "" {
		return nil, ErrEmptyAddress
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:          h.nextID,
		hub:         h,
		address:     addr,
		descendants: descendants,
		ch:          make(chan Change, h.buffer),
	}
	h.subs[sub.id] = sub
	return sub, nil
}

// AddObserver registers o for every change.
func (h *Hub) AddObserver(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, o)
}

// RemoveObserver unregisters o. Unknown observers are ignored.
func (h *Hub) RemoveObserver(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.observers {
		if existing == o {
			h.observers = append(h.observers[:i], h.observers[i+1:]...)
			return
		}
	}
}

// Publish delivers c without blocking. A zero ID or timestamp is filled in.
func (h *Hub) Publish(c Change) {
	c.Address = strings.Trim(c.Address, "/")
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, o := range h.observers {
		o.OnChange(c)
	}

	for _, sub := range h.subs {
		if !sub.wants(c.Address) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			h.dropped.Add(1)
			h.logger.Debug("change dropped",
				"address", c.Address,
				"subscriber", sub.address,
				"change_id", c.ID,
			)
		}
	}
}

// Stats returns the number of published and dropped deliveries.
func (h *Hub) Stats() (published, dropped uint64) {
	return h.published.Load(), h.dropped.Load()
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; !ok {
		return false
	}
	delete(h.subs, id)
	return true
}

// Subscription is a registered listener. Receive from C until Close.
type Subscription struct {
	id          uint64
	hub         *Hub
	address     string
	descendants bool
	ch          chan Change
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Address returns the subscribed path.
func (s *Subscription) Address() string {
	return s.address
}

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	if s.hub.remove(s.id) {
		close(s.ch)
	}
}

func (s *Subscription) wants(changed string) bool {
	switch {
	case changed == s.address:
		return true
	case address.IsDescendant(changed, s.address):
		return true
	case s.descendants && address.IsDescendant(s.address, changed):
		return true
	}
	return false
}
