// Stationlink Core
// Copyright (c) 2026 The Stationlink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Stationlink Core.
//
// Stationlink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Stationlink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Stationlink Core.  If not, see <http://www.gnu.org/licenses/>.

package syncman

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/StationlinkProject/stationlink-core/pkg/helpers/syncutil"
)

// BitGroup is the outcome-bit set used for the API-to-worker
// rendezvous. Wait wakes when any bit in its mask sets, returns the
// consistent snapshot of satisfied bits at the wake instant, and
// clears exactly the bits it returns. Multiple waiters on disjoint
// masks coexist; waiters on overlapping masks race for the bits, which
// matches the serialized one-command-at-a-time API contract.
type BitGroup struct {
	clock  clockwork.Clock
	notify chan struct{}
	bits   uint32
	mu     syncutil.Mutex
}

// NewBitGroup builds an empty bit group. A nil clock falls back to the
// real clock.
func NewBitGroup(clock clockwork.Clock) *BitGroup {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BitGroup{
		clock:  clock,
		notify: make(chan struct{}),
	}
}

// Set raises the bits in mask and wakes all waiters.
func (g *BitGroup) Set(mask uint32) {
	g.mu.Lock()
	g.bits |= mask
	close(g.notify)
	g.notify = make(chan struct{})
	g.mu.Unlock()
}

// Clear lowers the bits in mask without waking anyone.
func (g *BitGroup) Clear(mask uint32) {
	g.mu.Lock()
	g.bits &^= mask
	g.mu.Unlock()
}

// Bits returns the current bit snapshot.
func (g *BitGroup) Bits() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bits
}

// Wait blocks until any bit in mask is set or the timeout elapses. It
// returns the satisfied bits (cleared on return) or zero on timeout.
func (g *BitGroup) Wait(mask uint32, timeout time.Duration) uint32 {
	timer := g.clock.NewTimer(timeout)
	defer timer.Stop()

	for {
		g.mu.Lock()
		if got := g.bits & mask; got != 0 {
			g.bits &^= got
			g.mu.Unlock()
			return got
		}
		notify := g.notify
		g.mu.Unlock()

		select {
		case <-notify:
		case <-timer.Chan():
			// One last look: a Set may have landed between the
			// deadline firing and this waiter observing it.
			g.mu.Lock()
			got := g.bits & mask
			g.bits &^= got
			g.mu.Unlock()
			return got
		}
	}
}
