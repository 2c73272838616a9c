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

package fsm

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"pgregory.net/rapid"

	"github.com/StationlinkProject/stationlink-core/pkg/config"
)

// The legality table is total: every (state, command) pair resolves to
// a defined action.
func TestPropertyCommandTableTotal(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		state := State(rapid.IntRange(0, int(stateCount)-1).Draw(t, "state"))
		cmd := Command(rapid.IntRange(0, int(commandCount)-1).Draw(t, "cmd"))

		m := newMachineAt(state)
		action := m.ValidateCommand(cmd)
		if action != ActionError && action != ActionSkip && action != ActionExecute {
			t.Fatalf("undefined action %d for (%s, %s)", action, state, cmd)
		}
	})
}

// The transition table is total and well-formed: every (state, event)
// pair yields a known next state and only defined outcome bits.
func TestPropertyEventTableTotal(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		state := State(rapid.IntRange(0, int(stateCount)-1).Draw(t, "state"))
		event := Event(rapid.IntRange(0, int(eventCount)-1).Draw(t, "event"))

		m := newMachineAt(state)
		outcome := m.ResolveEvent(event)
		if int(outcome.Next) >= int(stateCount) {
			t.Fatalf("undefined next state %d for (%s, %s)", outcome.Next, state, event)
		}
		if outcome.Bits&^AllBits != 0 {
			t.Fatalf("undefined bits %#x for (%s, %s)", outcome.Bits, state, event)
		}
	})
}

// The backoff schedule is monotone non-decreasing and never exceeds
// the configured cap.
func TestPropertyBackoffMonotone(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		attempts := rapid.IntRange(1, 40).Draw(t, "attempts")

		m := New(clockwork.NewFakeClock(), config.WifiDefaults)
		m.TransitionTo(Connecting)

		capDelay := time.Duration(config.WifiDefaults.Backoff.CapMs) * time.Millisecond
		var prev time.Duration
		for i := 0; i < attempts; i++ {
			delay := m.CalculateNextBackoff()
			if delay < prev {
				t.Fatalf("delay decreased: %s after %s at attempt %d", delay, prev, i+1)
			}
			if delay > capDelay {
				t.Fatalf("delay %s exceeds cap %s", delay, capDelay)
			}
			prev = delay
		}
	})
}

// The strike counter invalidates exactly at the band's limit, and
// never below the critical threshold.
func TestPropertyStrikeSemantics(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		rssi := int8(rapid.IntRange(-127, 0).Draw(t, "rssi"))

		sig := config.WifiDefaults.Signal
		var limit int
		switch {
		case rssi >= sig.GoodRSSI:
			limit = sig.GoodStrikes
		case rssi >= sig.MediumRSSI:
			limit = sig.MediumStrikes
		case rssi >= sig.WeakRSSI:
			limit = sig.WeakStrikes
		default:
			limit = 0
		}

		m := New(clockwork.NewFakeClock(), config.WifiDefaults)
		m.TransitionTo(Connecting)

		if limit == 0 {
			for i := 0; i < 20; i++ {
				if m.HandleSuspectFailure(rssi) {
					t.Fatalf("critical-band strike %d invalidated at %d dBm", i+1, rssi)
				}
			}
			return
		}

		for i := 1; i < limit; i++ {
			if m.HandleSuspectFailure(rssi) {
				t.Fatalf("invalidated early at strike %d/%d (%d dBm)", i, limit, rssi)
			}
		}
		if !m.HandleSuspectFailure(rssi) {
			t.Fatalf("did not invalidate at strike %d (%d dBm)", limit, rssi)
		}
		if m.CurrentState() != ErrorCredentials {
			t.Fatalf("state %s after invalidation", m.CurrentState())
		}
	})
}
