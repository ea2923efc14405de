// Package events allows for the registering and receiving of events raised
// by the ledger core, such as blocks being mined and transactions being
// admitted to the mempool.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Set of event kinds raised by the service.
const (
	KindTxAdmitted = "tx_admitted"
	KindBlockMined = "block_mined"
	KindSweep      = "ttl_sweep"
	KindZakat      = "zakat_run"
	KindInfo       = "info"
)

// Event is the payload delivered to every registered subscriber.
type Event struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// String renders the event as the JSON document sent over the wire.
func (e Event) String() string {
	d, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"kind":%q,"message":"marshal failure"}`, e.Kind)
	}
	return string(d)
}

// Events maintains a mapping of unique ids and channels so goroutines
// can register to receive events.
type Events struct {
	m  map[string]chan Event
	mu sync.RWMutex
}

// New constructs an Events value for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	// A message is dropped if the receiver is not ready to take it. This
	// buffer gives a slow websocket writer room before messages are lost.
	const messageBuffer = 100

	evt.m[id] = make(chan Event, messageBuffer)
	return evt.m[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Send delivers an event to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(kind string, format string, args ...any) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	e := Event{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		At:      time.Now().UTC(),
	}

	for _, ch := range evt.m {
		select {
		case ch <- e:
		default:
		}
	}
}
