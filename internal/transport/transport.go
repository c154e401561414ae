// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"sync"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Func adapts a function into a Transport with a no-op Close.
type Func func(data any) error

func (f Func) Send(data any) error { return f(data) }
func (f Func) Close() error        { return nil }

// Multi fans every event out to a set of transports. Send keeps going after a
// failing member and returns the joined errors.
type Multi struct {
	mu      sync.RWMutex
	members []Transport
}

// NewMulti returns a fan-out over ts; nil entries are skipped.
func NewMulti(ts ...Transport) *Multi {
	m := &Multi{}
	for _, t := range ts {
		m.Add(t)
	}
	return m
}

// Add appends t to the fan-out.
func (m *Multi) Add(t Transport) {
	if t == nil {
		return
	}
	m.mu.Lock()
	m.members = append(m.members, t)
	m.mu.Unlock()
}

func (m *Multi) Send(data any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []error
	for _, t := range m.members {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, t := range m.members {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.members = nil
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Transport = Func(func(any) error { return nil })

var (
	_ Transport = (*Multi)(nil)
	_ Transport = Func(nil)
)
