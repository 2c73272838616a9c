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
	"github.com/rs/zerolog/log"

	"github.com/StationlinkProject/stationlink-core/pkg/wifi/fsm"
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/syncman"
)

// worker is the single consumer of the unified queue and applies every
// command and event to the state machine; Init, Deinit and the
// credential operations also change the state, under the same lock.
// Its receive is bounded by the next
// reconnect deadline while in WAITING_RECONNECT and indefinite
// otherwise; a timed-out receive means the backoff expired.
func (m *Manager) worker(queue *syncman.Queue, done chan struct{}) {
	defer close(done)

	for {
		m.mu.Lock()
		wait := m.machine.WaitDuration()
		m.mu.Unlock()

		msg, status := queue.Receive(wait)
		switch status {
		case syncman.RecvClosed:
			log.Warn().Msg("wifi worker queue closed, exiting")
			return
		case syncman.RecvMessage:
			if msg.Kind == syncman.KindCommand && msg.Cmd == fsm.CmdExit {
				log.Info().Msg("wifi worker exiting")
				return
			}
			m.mu.Lock()
			m.processMessage(msg)
			m.mu.Unlock()
		case syncman.RecvTimeout:
			m.mu.Lock()
			m.retryExpiredBackoff()
			m.mu.Unlock()
		}
	}
}

// retryExpiredBackoff fires the reconnection attempt once the backoff
// deadline passes, or gives up if the credentials went invalid in the
// meantime.
func (m *Manager) retryExpiredBackoff() {
	if m.machine.CurrentState() != fsm.WaitingReconnect {
		return
	}

	if m.store != nil && m.store.IsValid() {
		log.Info().Msg("retrying connection")
		m.machine.TransitionTo(fsm.Connecting)
		if err := m.driver.Connect(); err != nil {
			log.Error().Err(err).Msg("reconnect attempt failed")
			m.machine.CalculateNextBackoff()
		}
	} else {
		log.Warn().Msg("credentials invalid, not reconnecting")
		m.machine.TransitionTo(fsm.Disconnected)
	}
}

// processMessage dispatches one queue message while holding the state
// lock.
func (m *Manager) processMessage(msg syncman.Message) {
	if msg.Kind == syncman.KindCommand {
		// An explicit user action cancels the reconnection campaign.
		m.machine.ResetRetries()
		m.processCommand(msg.Cmd)
		return
	}
	m.handleEvent(msg)
}

func (m *Manager) processCommand(cmd fsm.Command) {
	state := m.machine.CurrentState()

	switch m.machine.ValidateCommand(cmd) {
	case fsm.ActionError:
		log.Error().Msgf("cannot %s in state %s", cmd, state)
		m.bits.Set(fsm.BitInvalidState)
	case fsm.ActionSkip:
		m.signalSkip(cmd, state)
	case fsm.ActionExecute:
		m.execute(cmd, state)
	}
}

// signalSkip wakes sync callers for idempotent commands without
// touching the driver.
func (m *Manager) signalSkip(cmd fsm.Command, state fsm.State) {
	switch cmd {
	case fsm.CmdStart:
		m.bits.Set(fsm.BitStarted)
	case fsm.CmdStop:
		m.bits.Set(fsm.BitStopped)
	case fsm.CmdConnect:
		// A connect during CONNECTING stays pending; only a completed
		// association is a success.
		if state == fsm.ConnectedGotIP {
			m.bits.Set(fsm.BitConnected)
		}
	case fsm.CmdDisconnect:
		m.bits.Set(fsm.BitDisconnected)
	case fsm.CmdExit:
	}
}

func (m *Manager) execute(cmd fsm.Command, state fsm.State) {
	switch cmd {
	case fsm.CmdStart:
		m.runOp("start", state, fsm.Starting, m.driver.Start, fsm.BitStartFailed)
	case fsm.CmdStop:
		m.runOp("stop", state, fsm.Stopping, m.driver.Stop, fsm.BitStopFailed)
	case fsm.CmdConnect:
		m.runOp("connect", state, fsm.Connecting, m.driver.Connect, fsm.BitConnectFailed)
	case fsm.CmdDisconnect:
		// The driver does not emit STA_DISCONNECTED when the link was
		// never established, so a disconnect during the early connect
		// phase or backoff completes immediately.
		if state == fsm.WaitingReconnect || state == fsm.Connecting {
			m.machine.TransitionTo(fsm.Disconnected)
			if err := m.driver.Disconnect(); err != nil {
				log.Warn().Err(err).Msg("disconnect during rollback failed")
			}
			m.bits.Set(fsm.BitDisconnected)
			return
		}
		m.runOp("disconnect", state, fsm.Disconnecting, m.driver.Disconnect, fsm.BitConnectFailed)
	case fsm.CmdExit:
	}
}

// runOp performs the transition-then-call step for an EXECUTE verdict,
// reverting the transition and raising the failure bit on an immediate
// driver error.
func (m *Manager) runOp(name string, prev, ing fsm.State, op func() error, failBit uint32) {
	m.machine.TransitionTo(ing)
	if err := op(); err != nil {
		log.Error().Err(err).Msgf("failed to %s wifi", name)
		m.machine.TransitionTo(prev)
		m.bits.Set(failBit)
	}
}
