// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefSetNotifies(t *testing.T) {
	r := NewRef(1)
	var got []int
	cancel := r.Subscribe(func(v int) { got = append(got, v) })

	r.Set(2)
	r.Set(3)
	cancel()
	r.Set(4)

	assert.Equal(t, []int{2, 3}, got)
	assert.Equal(t, 4, r.Get())
	assert.Equal(t, uint64(3), r.Version())
}

func TestRefUpdateWithoutChange(t *testing.T) {
	r := NewRef("a")
	notified := 0
	r.OnChange(func() { notified++ })

	changed := r.Update(func(cur string) (string, bool) { return cur, false })

	assert.False(t, changed)
	assert.Zero(t, notified)
	assert.Zero(t, r.Version())
}

func TestRefSubscriberMayReadRef(t *testing.T) {
	r := NewRef(0)
	var seen int
	r.Subscribe(func(int) { seen = r.Get() })

	r.Set(7)

	assert.Equal(t, 7, seen)
}

func TestRefSubscribersInOrder(t *testing.T) {
	r := NewRef(0)
	var order []string
	r.OnChange(func() { order = append(order, "a") })
	r.OnChange(func() { order = append(order, "b") })
	r.OnChange(func() { order = append(order, "c") })

	r.Set(1)

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRefConcurrentUpdates(t *testing.T) {
	r := NewRef(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Update(func(cur int) (int, bool) { return cur + 1, true })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Get())
}

func TestSequence(t *testing.T) {
	var s Sequence
	a := s.Next()
	assert.True(t, s.IsCurrent(a))

	b := s.Next()
	assert.False(t, s.IsCurrent(a))
	assert.True(t, s.IsCurrent(b))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "unfetched", StatusUnfetched.String())
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(99).String())
}
