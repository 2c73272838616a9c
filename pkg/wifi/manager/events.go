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
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/hal"
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/syncman"
)

// translateWifiEvents bridges raw WiFi driver events into the unified
// queue. The returned handler closes over the queue only and never
// blocks; it may run in the driver's event context.
func translateWifiEvents(queue *syncman.Queue) hal.WifiEventHandler {
	return func(ev hal.WifiEvent) {
		msg := syncman.Message{Kind: syncman.KindEvent}
		switch ev.ID {
		case hal.WifiEventStaStart:
			msg.Event = fsm.EventStaStart
		case hal.WifiEventStaStop:
			msg.Event = fsm.EventStaStop
		case hal.WifiEventStaConnected:
			msg.Event = fsm.EventStaConnected
		case hal.WifiEventStaDisconnected:
			msg.Event = fsm.EventStaDisconnected
			msg.Reason = ev.Reason
			msg.RSSI = ev.RSSI
		default:
			return
		}
		if err := queue.Post(msg); err != nil {
			log.Error().Err(err).Msgf("dropping wifi event %s", msg.Event)
		}
	}
}

// translateIPEvents bridges raw IP stack events into the unified
// queue under the same constraints.
func translateIPEvents(queue *syncman.Queue) hal.IPEventHandler {
	return func(ev hal.IPEvent) {
		if ev.ID != hal.IPEventStaGotIP {
			return
		}
		msg := syncman.Message{Kind: syncman.KindEvent, Event: fsm.EventGotIP}
		if err := queue.Post(msg); err != nil {
			log.Error().Err(err).Msgf("dropping ip event %s", msg.Event)
		}
	}
}

// handleEvent applies the transition table to one driver event, then
// layers the additive side effects on top. Called with the state lock
// held.
func (m *Manager) handleEvent(msg syncman.Message) {
	prev := m.machine.CurrentState()
	outcome := m.machine.ResolveEvent(msg.Event)
	m.machine.TransitionTo(outcome.Next)
	if outcome.Bits != 0 {
		m.bits.Set(outcome.Bits)
	}
	if prev != outcome.Next {
		log.Info().Msgf("event %s: %s -> %s", msg.Event, prev, outcome.Next)
	}

	switch msg.Event {
	case fsm.EventStaStart:
		if prev != fsm.Starting {
			log.Warn().Msgf("STA_START ignored in state %s", prev)
		}
	case fsm.EventStaStop:
		if prev != fsm.Stopping {
			log.Warn().Msgf("STA_STOP ignored in state %s", prev)
		}
	case fsm.EventStaConnected:
		if prev != fsm.Connecting {
			log.Warn().Msgf("STA_CONNECTED ignored in state %s", prev)
		}
	case fsm.EventStaDisconnected:
		m.handleStaDisconnected(prev, msg.Reason, msg.RSSI)
	case fsm.EventGotIP:
		m.handleGotIP(prev)
	case fsm.EventLostIP:
		if prev == fsm.ConnectedGotIP {
			log.Warn().Msg("lost IP address")
		}
	}
}

// handleStaDisconnected classifies a disconnect, first match wins:
// refused start, intended, inactive, benign leave, suspect
// credentials, recoverable.
func (m *Manager) handleStaDisconnected(prev fsm.State, reason hal.DisconnectReason, rssi int8) {
	log.Info().Msgf(
		"STA_DISCONNECTED (reason %d, rssi %d dBm) in state %s", reason, rssi, prev,
	)

	switch {
	case prev == fsm.Starting:
		// The driver refused to come up; the transition table already
		// resolved this to INITIALIZED with START_FAILED.
		log.Error().Msg("driver refused to start")

	case prev == fsm.Disconnecting || prev == fsm.Stopping:
		// Requested via the API. If STOPPING, the table keeps the
		// state until STA_STOP arrives.
		m.bits.Set(fsm.BitDisconnected | fsm.BitConnectFailed)

	case !prev.IsActive():
		log.Warn().Msgf("STA_DISCONNECTED ignored in state %s", prev)
		m.bits.Set(fsm.BitDisconnected | fsm.BitConnectFailed)

	case reason == hal.ReasonAssocLeave:
		// The peer or our own driver ended a healthy association.
		log.Info().Msg("disconnected (assoc leave)")
		m.machine.TransitionTo(fsm.Disconnected)
		m.bits.Set(fsm.BitDisconnected | fsm.BitConnectFailed)

	case reason.Suspect():
		if m.machine.HandleSuspectFailure(rssi) {
			if err := m.saveValidFlag(false); err != nil {
				log.Error().Err(err).Msg("failed to persist credential invalidation")
			}
		} else {
			m.machine.CalculateNextBackoff()
		}
		m.bits.Set(fsm.BitConnectFailed)

	default:
		if m.store != nil && m.store.IsValid() {
			m.machine.CalculateNextBackoff()
		} else {
			log.Warn().Msg("credentials invalid, not reconnecting")
			m.machine.TransitionTo(fsm.Disconnected)
		}
		m.bits.Set(fsm.BitConnectFailed)
	}
}

// handleGotIP finalizes a successful connection: the reconnection
// campaign ends and the stored credentials are proven good.
func (m *Manager) handleGotIP(prev fsm.State) {
	if prev != fsm.Connecting && prev != fsm.ConnectedNoIP {
		if prev != fsm.ConnectedGotIP {
			log.Warn().Msgf("GOT_IP ignored in state %s", prev)
		}
		return
	}

	log.Info().Msg("got IP address")
	m.machine.ResetRetries()
	if m.store != nil && !m.store.IsValid() {
		if err := m.saveValidFlag(true); err != nil {
			log.Error().Err(err).Msg("failed to persist credential validation")
		}
	}
}

// saveValidFlag persists the flag when the store is up; a missing
// store only happens in teardown races and is not an error.
func (m *Manager) saveValidFlag(valid bool) error {
	if m.store == nil {
		return nil
	}
	return m.store.SaveValidFlag(valid)
}
