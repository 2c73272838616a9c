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

// Package fsm implements the station manager's finite-state machine:
// the state set, the command-legality and event-transition tables, the
// retry counters, the reconnection backoff schedule, and the
// signal-quality-tiered credential-invalidation policy.
//
// A Machine is not safe for concurrent use. The manager's worker owns
// it and guards every access with the manager's state lock.
package fsm

import (
	"github.com/jonboulle/clockwork"

	"github.com/StationlinkProject/stationlink-core/pkg/config"
)

// State is the manager's connection state.
type State uint8

const (
	Uninitialized State = iota
	Initializing
	Initialized
	Starting
	Started
	Connecting
	ConnectedNoIP
	ConnectedGotIP
	Disconnecting
	WaitingReconnect
	ErrorCredentials
	Stopping

	stateCount = iota
)

// Disconnected and Stopped are aliases: "driver powered but not
// associated" and "driver powered off but manager alive" reuse the
// same underlying states.
const (
	Disconnected = Started
	Stopped      = Initialized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Initializing:
		return "INITIALIZING"
	case Initialized:
		return "INITIALIZED"
	case Starting:
		return "STARTING"
	case Started:
		return "STARTED"
	case Connecting:
		return "CONNECTING"
	case ConnectedNoIP:
		return "CONNECTED_NO_IP"
	case ConnectedGotIP:
		return "CONNECTED_GOT_IP"
	case Disconnecting:
		return "DISCONNECTING"
	case WaitingReconnect:
		return "WAITING_RECONNECT"
	case ErrorCredentials:
		return "ERROR_CREDENTIALS"
	case Stopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// stateProps are the fixed derived properties of each state.
type stateProps struct {
	active    bool
	connected bool
	staReady  bool
}

var statePropsTable = [stateCount]stateProps{
	Uninitialized:    {active: false, connected: false, staReady: false},
	Initializing:     {active: false, connected: false, staReady: false},
	Initialized:      {active: false, connected: false, staReady: false},
	Starting:         {active: true, connected: false, staReady: false},
	Started:          {active: true, connected: false, staReady: true},
	Connecting:       {active: true, connected: false, staReady: true},
	ConnectedNoIP:    {active: true, connected: true, staReady: true},
	ConnectedGotIP:   {active: true, connected: true, staReady: true},
	Disconnecting:    {active: true, connected: false, staReady: true},
	WaitingReconnect: {active: true, connected: false, staReady: true},
	ErrorCredentials: {active: true, connected: false, staReady: true},
	Stopping:         {active: true, connected: false, staReady: false},
}

// IsActive reports whether driver-level activity is in progress.
func (s State) IsActive() bool {
	if int(s) >= stateCount {
		return false
	}
	return statePropsTable[s].active
}

// IsConnected reports whether an L2 association is present.
func (s State) IsConnected() bool {
	if int(s) >= stateCount {
		return false
	}
	return statePropsTable[s].connected
}

// IsStaReady reports whether the driver is ready to accept commands.
func (s State) IsStaReady() bool {
	if int(s) >= stateCount {
		return false
	}
	return statePropsTable[s].staReady
}

// Command is a user-facing command, plus the internal Exit command
// that terminates the worker.
type Command uint8

const (
	CmdStart Command = iota
	CmdStop
	CmdConnect
	CmdDisconnect
	CmdExit

	commandCount = iota
)

func (c Command) String() string {
	switch c {
	case CmdStart:
		return "START"
	case CmdStop:
		return "STOP"
	case CmdConnect:
		return "CONNECT"
	case CmdDisconnect:
		return "DISCONNECT"
	case CmdExit:
		return "EXIT"
	default:
		return "UNKNOWN"
	}
}

// Event is a driver-sourced event.
type Event uint8

const (
	EventStaStart Event = iota
	EventStaStop
	EventStaConnected
	EventStaDisconnected
	EventGotIP
	EventLostIP

	eventCount = iota
)

func (e Event) String() string {
	switch e {
	case EventStaStart:
		return "STA_START"
	case EventStaStop:
		return "STA_STOP"
	case EventStaConnected:
		return "STA_CONNECTED"
	case EventStaDisconnected:
		return "STA_DISCONNECTED"
	case EventGotIP:
		return "GOT_IP"
	case EventLostIP:
		return "LOST_IP"
	default:
		return "UNKNOWN"
	}
}

// Action is the FSM's verdict on a (state, command) pair.
type Action uint8

const (
	// ActionError rejects the command as illegal in this state.
	ActionError Action = iota
	// ActionSkip treats the command as an idempotent no-op.
	ActionSkip
	// ActionExecute dispatches the command to its handler.
	ActionExecute
)

func (a Action) String() string {
	switch a {
	case ActionError:
		return "ERROR"
	case ActionSkip:
		return "SKIP"
	case ActionExecute:
		return "EXECUTE"
	default:
		return "UNKNOWN"
	}
}

// Outcome bits used for the API-to-worker rendezvous.
const (
	BitStarted       uint32 = 1 << 0
	BitStopped       uint32 = 1 << 1
	BitConnected     uint32 = 1 << 2
	BitDisconnected  uint32 = 1 << 3
	BitConnectFailed uint32 = 1 << 4
	BitStartFailed   uint32 = 1 << 5
	BitStopFailed    uint32 = 1 << 6
	BitInvalidState  uint32 = 1 << 7

	AllBits = BitStarted | BitStopped | BitConnected | BitDisconnected |
		BitConnectFailed | BitStartFailed | BitStopFailed | BitInvalidState
)

// EventOutcome is one cell of the event-transition table.
type EventOutcome struct {
	Next State
	Bits uint32
}

// Machine holds the mutable FSM fields. The zero state is
// Uninitialized with zeroed retry counters.
type Machine struct {
	clock   clockwork.Clock
	state   State
	backoff config.Backoff
	signal  config.Signal

	retryCount        uint32
	suspectRetryCount uint32
	nextReconnect     int64 // unix ms, valid only in WaitingReconnect
}

// New builds a Machine with the given tunables. A nil clock falls back
// to the real clock.
func New(clock clockwork.Clock, wifiCfg config.Wifi) *Machine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Machine{
		clock:   clock,
		state:   Uninitialized,
		backoff: wifiCfg.Backoff,
		signal:  wifiCfg.Signal,
	}
}

// CurrentState returns the current state.
func (m *Machine) CurrentState() State {
	return m.state
}

// TransitionTo moves the machine to next.
func (m *Machine) TransitionTo(next State) {
	m.state = next
}

// ValidateCommand returns the table verdict for cmd in the current
// state. Unknown commands (Exit included) are rejected; Exit is
// dispatched by the worker without validation.
func (m *Machine) ValidateCommand(cmd Command) Action {
	if int(cmd) >= commandCount {
		return ActionError
	}
	return commandMatrix[m.state][cmd]
}

// ResolveEvent returns the transition-table cell for event in the
// current state. Unknown events self-loop with no bits.
func (m *Machine) ResolveEvent(event Event) EventOutcome {
	if int(event) >= eventCount {
		return EventOutcome{Next: m.state}
	}
	return transitionMatrix[m.state][event]
}

// ResetRetries clears both retry counters. Every explicit user command
// cancels the reconnection campaign.
func (m *Machine) ResetRetries() {
	m.retryCount = 0
	m.suspectRetryCount = 0
}

// RetryCount returns the recoverable-failure counter.
func (m *Machine) RetryCount() uint32 {
	return m.retryCount
}

// SuspectRetryCount returns the suspect-failure strike counter.
func (m *Machine) SuspectRetryCount() uint32 {
	return m.suspectRetryCount
}
