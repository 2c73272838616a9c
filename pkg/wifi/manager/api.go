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

package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/StationlinkProject/stationlink-core/pkg/wifi/fsm"
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/syncman"
)

// cmdSpec binds a command to its outcome-bit contract and its
// best-effort rollback on sync timeout.
type cmdSpec struct {
	rollback   func(m *Manager)
	name       string
	cmd        fsm.Command
	waitMask   uint32
	successBit uint32
	failBit    uint32
}

var (
	startSpec = cmdSpec{
		name:       "start",
		cmd:        fsm.CmdStart,
		waitMask:   fsm.BitStarted | fsm.BitStartFailed | fsm.BitInvalidState,
		successBit: fsm.BitStarted,
		failBit:    fsm.BitStartFailed,
		// If the driver never came up, try to put it back down.
		rollback: func(m *Manager) { m.postRollback(fsm.CmdStop) },
	}
	stopSpec = cmdSpec{
		name:       "stop",
		cmd:        fsm.CmdStop,
		waitMask:   fsm.BitStopped | fsm.BitStopFailed | fsm.BitInvalidState,
		successBit: fsm.BitStopped,
		failBit:    fsm.BitStopFailed,
	}
	connectSpec = cmdSpec{
		name:       "connect",
		cmd:        fsm.CmdConnect,
		waitMask:   fsm.BitConnected | fsm.BitConnectFailed | fsm.BitInvalidState,
		successBit: fsm.BitConnected,
		failBit:    fsm.BitConnectFailed,
		// Cancel the in-flight association attempt.
		rollback: func(m *Manager) { m.postRollback(fsm.CmdDisconnect) },
	}
	disconnectSpec = cmdSpec{
		name:       "disconnect",
		cmd:        fsm.CmdDisconnect,
		waitMask:   fsm.BitDisconnected | fsm.BitConnectFailed | fsm.BitInvalidState,
		successBit: fsm.BitDisconnected,
		failBit:    fsm.BitConnectFailed,
	}
)

// StartSync powers up the station and waits for the outcome.
func (m *Manager) StartSync(timeout time.Duration) error {
	return m.commandSync(startSpec, timeout)
}

// Start powers up the station without waiting.
func (m *Manager) Start() error {
	return m.commandAsync(startSpec)
}

// StopSync powers down the station and waits for the outcome.
func (m *Manager) StopSync(timeout time.Duration) error {
	return m.commandSync(stopSpec, timeout)
}

// Stop powers down the station without waiting.
func (m *Manager) Stop() error {
	return m.commandAsync(stopSpec)
}

// ConnectSync associates with the configured AP and waits until an IP
// is acquired, a failure is signaled, or the timeout elapses.
func (m *Manager) ConnectSync(timeout time.Duration) error {
	return m.commandSync(connectSpec, timeout)
}

// Connect associates with the configured AP without waiting.
func (m *Manager) Connect() error {
	return m.commandAsync(connectSpec)
}

// DisconnectSync drops the association and waits for the outcome.
// Disconnect is also the cancellation primitive for an in-flight
// connect or a pending reconnection.
func (m *Manager) DisconnectSync(timeout time.Duration) error {
	return m.commandSync(disconnectSpec, timeout)
}

// Disconnect drops the association without waiting.
func (m *Manager) Disconnect() error {
	return m.commandAsync(disconnectSpec)
}

// primitives snapshots the queue and bit group under the state lock.
func (m *Manager) primitives() (*syncman.Queue, *syncman.BitGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue, m.bits
}

// validate runs the legality table against the current state.
func (m *Manager) validate(cmd fsm.Command) fsm.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.ValidateCommand(cmd)
}

func (m *Manager) commandSync(spec cmdSpec, timeout time.Duration) error {
	queue, bits := m.primitives()
	if queue == nil || bits == nil {
		return ErrInvalidState
	}

	switch m.validate(spec.cmd) {
	case fsm.ActionError:
		return ErrInvalidState
	case fsm.ActionSkip:
		return nil
	case fsm.ActionExecute:
	}

	log.Debug().Msgf("api: requesting %s (sync)", spec.name)

	// The bits must be cleared before the message is enqueued, so the
	// only way they can be observed set is the worker processing this
	// command (or an event it caused).
	bits.Clear(spec.waitMask)
	msg := syncman.Message{Kind: syncman.KindCommand, Cmd: spec.cmd}
	if err := queue.Send(context.Background(), msg); err != nil {
		return ErrFailed
	}

	got := bits.Wait(spec.waitMask, timeout)
	switch {
	case got&fsm.BitInvalidState != 0:
		return ErrInvalidState
	case got&spec.successBit != 0:
		return nil
	case got&spec.failBit != 0:
		return ErrFailed
	}

	log.Warn().Msgf("%s timed out, cancelling", spec.name)
	if spec.rollback != nil {
		spec.rollback(m)
	}
	return ErrTimeout
}

// postRollback queues cmd without the API-side legality check. It lands
// behind the command that timed out, even if the worker has not
// processed that command yet, and the worker validates it on dequeue.
func (m *Manager) postRollback(cmd fsm.Command) {
	queue, _ := m.primitives()
	if queue == nil {
		return
	}
	if err := queue.Post(syncman.Message{Kind: syncman.KindCommand, Cmd: cmd}); err != nil {
		log.Error().Err(err).Msgf("failed to enqueue %s rollback", cmd)
	}
}

func (m *Manager) commandAsync(spec cmdSpec) error {
	queue, _ := m.primitives()
	if queue == nil {
		return ErrInvalidState
	}

	switch m.validate(spec.cmd) {
	case fsm.ActionError:
		return ErrInvalidState
	case fsm.ActionSkip:
		return nil
	case fsm.ActionExecute:
	}

	log.Debug().Msgf("api: requesting %s (async)", spec.name)

	msg := syncman.Message{Kind: syncman.KindCommand, Cmd: spec.cmd}
	if err := queue.Post(msg); err != nil {
		log.Error().Err(err).Msgf("failed to enqueue %s", spec.name)
		return ErrFailed
	}
	return nil
}
