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

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StationlinkProject/stationlink-core/pkg/config"
)

func newMachineAt(state State) *Machine {
	m := New(clockwork.NewFakeClock(), config.WifiDefaults)
	m.TransitionTo(state)
	return m
}

func TestStateAliases(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Started, Disconnected)
	assert.Equal(t, Initialized, Stopped)
}

func TestStateProperties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		state     State
		active    bool
		connected bool
		staReady  bool
	}{
		{name: "uninitialized", state: Uninitialized},
		{name: "initializing", state: Initializing},
		{name: "initialized", state: Initialized},
		{name: "starting", state: Starting, active: true},
		{name: "started", state: Started, active: true, staReady: true},
		{name: "connecting", state: Connecting, active: true, staReady: true},
		{name: "connected no ip", state: ConnectedNoIP, active: true, connected: true, staReady: true},
		{name: "connected got ip", state: ConnectedGotIP, active: true, connected: true, staReady: true},
		{name: "disconnecting", state: Disconnecting, active: true, staReady: true},
		{name: "waiting reconnect", state: WaitingReconnect, active: true, staReady: true},
		{name: "error credentials", state: ErrorCredentials, active: true, staReady: true},
		{name: "stopping", state: Stopping, active: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.active, tt.state.IsActive())
			assert.Equal(t, tt.connected, tt.state.IsConnected())
			assert.Equal(t, tt.staReady, tt.state.IsStaReady())
		})
	}
}

func TestValidateCommandMatrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state State
		want  [4]Action // START, STOP, CONNECT, DISCONNECT
	}{
		{
			name:  "uninitialized rejects everything",
			state: Uninitialized,
			want:  [4]Action{ActionError, ActionError, ActionError, ActionError},
		},
		{
			name:  "initializing rejects everything",
			state: Initializing,
			want:  [4]Action{ActionError, ActionError, ActionError, ActionError},
		},
		{
			name:  "initialized",
			state: Initialized,
			want:  [4]Action{ActionExecute, ActionSkip, ActionError, ActionError},
		},
		{
			name:  "starting",
			state: Starting,
			want:  [4]Action{ActionSkip, ActionExecute, ActionError, ActionError},
		},
		{
			name:  "started",
			state: Started,
			want:  [4]Action{ActionSkip, ActionExecute, ActionExecute, ActionSkip},
		},
		{
			name:  "connecting",
			state: Connecting,
			want:  [4]Action{ActionSkip, ActionExecute, ActionSkip, ActionExecute},
		},
		{
			name:  "connected no ip",
			state: ConnectedNoIP,
			want:  [4]Action{ActionSkip, ActionExecute, ActionSkip, ActionExecute},
		},
		{
			name:  "connected got ip",
			state: ConnectedGotIP,
			want:  [4]Action{ActionSkip, ActionExecute, ActionSkip, ActionExecute},
		},
		{
			name:  "disconnecting",
			state: Disconnecting,
			want:  [4]Action{ActionSkip, ActionExecute, ActionError, ActionSkip},
		},
		{
			name:  "waiting reconnect",
			state: WaitingReconnect,
			want:  [4]Action{ActionSkip, ActionExecute, ActionExecute, ActionExecute},
		},
		{
			name:  "error credentials",
			state: ErrorCredentials,
			want:  [4]Action{ActionSkip, ActionExecute, ActionExecute, ActionExecute},
		},
		{
			name:  "stopping",
			state: Stopping,
			want:  [4]Action{ActionError, ActionSkip, ActionError, ActionError},
		},
	}

	cmds := [4]Command{CmdStart, CmdStop, CmdConnect, CmdDisconnect}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newMachineAt(tt.state)
			for i, cmd := range cmds {
				assert.Equal(t, tt.want[i], m.ValidateCommand(cmd),
					"state %s command %s", tt.state, cmd)
			}
		})
	}
}

func TestExitAlwaysRejected(t *testing.T) {
	t.Parallel()

	for s := Uninitialized; s < stateCount; s++ {
		m := newMachineAt(s)
		assert.Equal(t, ActionError, m.ValidateCommand(CmdExit), "state %s", s)
	}
}

func TestResolveEventTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		state    State
		event    Event
		wantNext State
		wantBits uint32
	}{
		{
			name:  "starting plus sta start",
			state: Starting, event: EventStaStart,
			wantNext: Started, wantBits: BitStarted,
		},
		{
			name:  "starting plus disconnected means driver refused",
			state: Starting, event: EventStaDisconnected,
			wantNext: Initialized, wantBits: BitStartFailed,
		},
		{
			name:  "stopping plus sta stop",
			state: Stopping, event: EventStaStop,
			wantNext: Initialized, wantBits: BitStopped,
		},
		{
			name:  "connecting plus sta connected",
			state: Connecting, event: EventStaConnected,
			wantNext: ConnectedNoIP,
		},
		{
			name:  "connecting plus early got ip",
			state: Connecting, event: EventGotIP,
			wantNext: ConnectedGotIP, wantBits: BitConnected,
		},
		{
			name:  "connecting plus disconnected",
			state: Connecting, event: EventStaDisconnected,
			wantNext: WaitingReconnect,
		},
		{
			name:  "connected no ip plus got ip",
			state: ConnectedNoIP, event: EventGotIP,
			wantNext: ConnectedGotIP, wantBits: BitConnected,
		},
		{
			name:  "connected no ip plus disconnected",
			state: ConnectedNoIP, event: EventStaDisconnected,
			wantNext: WaitingReconnect,
		},
		{
			name:  "connected got ip plus disconnected",
			state: ConnectedGotIP, event: EventStaDisconnected,
			wantNext: WaitingReconnect,
		},
		{
			name:  "connected got ip plus lost ip",
			state: ConnectedGotIP, event: EventLostIP,
			wantNext: ConnectedNoIP,
		},
		{
			name:  "disconnecting plus disconnected",
			state: Disconnecting, event: EventStaDisconnected,
			wantNext: Disconnected, wantBits: BitDisconnected,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newMachineAt(tt.state)
			outcome := m.ResolveEvent(tt.event)
			assert.Equal(t, tt.wantNext, outcome.Next)
			assert.Equal(t, tt.wantBits, outcome.Bits)
		})
	}
}

func TestStrictEventsSelfLoop(t *testing.T) {
	t.Parallel()

	// STA_START outside STARTING, STA_STOP outside STOPPING and
	// GOT_IP outside CONNECTING/CONNECTED_NO_IP never change state.
	for s := Uninitialized; s < stateCount; s++ {
		m := newMachineAt(s)

		if s != Starting {
			assert.Equal(t, s, m.ResolveEvent(EventStaStart).Next, "STA_START in %s", s)
		}
		if s != Stopping {
			assert.Equal(t, s, m.ResolveEvent(EventStaStop).Next, "STA_STOP in %s", s)
		}
		if s != Connecting && s != ConnectedNoIP {
			assert.Equal(t, s, m.ResolveEvent(EventGotIP).Next, "GOT_IP in %s", s)
		}
	}
}

func TestResetRetries(t *testing.T) {
	t.Parallel()

	m := newMachineAt(Connecting)
	m.CalculateNextBackoff()
	m.CalculateNextBackoff()
	m.TransitionTo(Connecting)
	m.HandleSuspectFailure(-90)

	require.Equal(t, uint32(2), m.RetryCount())
	require.Equal(t, uint32(1), m.SuspectRetryCount())

	m.ResetRetries()
	assert.Zero(t, m.RetryCount())
	assert.Zero(t, m.SuspectRetryCount())
}

func TestUnknownInputs(t *testing.T) {
	t.Parallel()

	m := newMachineAt(Started)
	assert.Equal(t, ActionError, m.ValidateCommand(Command(200)))

	outcome := m.ResolveEvent(Event(200))
	assert.Equal(t, Started, outcome.Next)
	assert.Zero(t, outcome.Bits)
}
