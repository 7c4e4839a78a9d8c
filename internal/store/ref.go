// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sort"
	"sync"
)

// Observable is implemented by every Ref regardless of its value type, so a
// view can watch several stores through one interface.
type Observable interface {
	// OnChange registers fn to run after every change. The returned func
	// removes the registration.
	OnChange(fn func()) (cancel func())
}

// Ref is a mutable cell whose changes are published to subscribers.
//
// Values stored in a Ref are treated as immutable snapshots: updates build a
// new value instead of modifying the current one in place, so a value
// returned by Get stays valid after later updates.
type Ref[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	nextID  uint64
	subs    map[uint64]func(T)
}

// NewRef creates a Ref holding initial.
func NewRef[T any](initial T) *Ref[T] {
	return &Ref[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Get returns the current value.
func (r *Ref[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Version increments on every change. Zero means never changed.
func (r *Ref[T]) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Set replaces the value and notifies subscribers.
func (r *Ref[T]) Set(v T) {
	r.Update(func(T) (T, bool) { return v, true })
}

// Update runs fn on the current value under the write lock. When fn reports
// a change the new value is stored and subscribers are notified after the
// lock is released. Update reports whether a change was made.
//
// fn must not call back into the same Ref.
func (r *Ref[T]) Update(fn func(cur T) (next T, changed bool)) bool {
	r.mu.Lock()
	next, changed := fn(r.value)
	if !changed {
		r.mu.Unlock()
		return false
	}
	r.value = next
	r.version++
	subs := r.snapshotLocked()
	r.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return true
}

// Subscribe registers fn to receive every new value. Callbacks run on the
// goroutine that made the change, outside the Ref's lock.
func (r *Ref[T]) Subscribe(fn func(T)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// OnChange implements Observable.
func (r *Ref[T]) OnChange(fn func()) (cancel func()) {
	return r.Subscribe(func(T) { fn() })
}

// snapshotLocked returns subscribers in registration order.
func (r *Ref[T]) snapshotLocked() []func(T) {
	if len(r.subs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, r.subs[id])
	}
	return out
}
