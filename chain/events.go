// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"slices"
	"sync"

	"github.com/luxfi/geth/common"
)

const subscriptionBuffer = 256

// Event is a typed contract event
type Event interface {
	EventName() string
}

// Log is an event emitted by the contract at Address
type Log struct {
	Index   int
	Address common.Address
	Event   Event
}

type subscription struct {
	ch   chan Log
	done chan struct{}
}

type eventLog struct {
	mu   sync.RWMutex
	logs []Log
	subs map[*subscription]struct{}
}

func newEventLog() *eventLog {
	return &eventLog{subs: make(map[*subscription]struct{})}
}

// Emit appends an event to the log and publishes it to subscribers. Slow
// subscribers block the emitter until they consume or unsubscribe.
func (c *Chain) Emit(addr common.Address, ev Event) {
	l := c.events
	l.mu.Lock()
	entry := Log{Index: len(l.logs), Address: addr, Event: ev}
	l.logs = append(l.logs, entry)
	subs := make([]*subscription, 0, len(l.subs))
	for s := range l.subs {
		subs = append(subs, s)
	}
	l.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- entry:
		case <-s.done:
		}
	}
}

// Logs returns every log emitted so far
func (c *Chain) Logs() []Log {
	return c.LogsSince(0)
}

// Mark returns the index the next log will get. Pair with LogsSince to
// collect the logs of one call.
func (c *Chain) Mark() int {
	c.events.mu.RLock()
	defer c.events.mu.RUnlock()
	return len(c.events.logs)
}

// LogsSince returns the logs emitted at or after mark
func (c *Chain) LogsSince(mark int) []Log {
	c.events.mu.RLock()
	defer c.events.mu.RUnlock()
	if mark >= len(c.events.logs) {
		return nil
	}
	return slices.Clone(c.events.logs[mark:])
}

// Subscribe streams logs emitted after the call until ctx is done or the
// returned cancel function is called.
func (c *Chain) Subscribe(ctx context.Context) (<-chan Log, func()) {
	s := &subscription{
		ch:   make(chan Log, subscriptionBuffer),
		done: make(chan struct{}),
	}
	l := c.events
	l.mu.Lock()
	l.subs[s] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, s)
			l.mu.Unlock()
			close(s.done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()
	return s.ch, cancel
}

// Filter returns the events of type T in logs, in order
func Filter[T Event](logs []Log) []T {
	var out []T
	for _, l := range logs {
		if ev, ok := l.Event.(T); ok {
			out = append(out, ev)
		}
	}
	return out
}

// FilterFrom returns the events of type T emitted by addr
func FilterFrom[T Event](logs []Log, addr common.Address) []T {
	var out []T
	for _, l := range logs {
		if l.Address != addr {
			continue
		}
		if ev, ok := l.Event.(T); ok {
			out = append(out, ev)
		}
	}
	return out
}
