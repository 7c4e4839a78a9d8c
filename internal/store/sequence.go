// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"sync/atomic"
)

// ErrSuperseded is returned by an action whose response arrived after a newer
// call to the same action had been issued. Its result was discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

// Sequence issues monotonically increasing request tickets.
type Sequence struct {
	n atomic.Uint64
}

// Next issues a new ticket, which becomes the current one.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// IsCurrent reports whether ticket is the latest one issued.
func (s *Sequence) IsCurrent(ticket uint64) bool {
	return s.n.Load() == ticket
}
