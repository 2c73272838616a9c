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
	"time"

	"github.com/rs/zerolog/log"
)

// WaitForever is the WaitDuration sentinel meaning "no deadline, block
// until a message arrives".
const WaitForever time.Duration = -1

// StrikesUnlimited marks an RSSI band whose suspect failures never
// invalidate credentials.
const StrikesUnlimited = 0

// CalculateNextBackoff advances the retry counter, computes the next
// reconnection delay (exponential, capped), arms the reconnect
// deadline and moves the machine to WaitingReconnect. It returns the
// chosen delay.
func (m *Machine) CalculateNextBackoff() time.Duration {
	m.retryCount++

	exponent := m.retryCount - 1
	if exponent > uint32(m.backoff.ExponentCap) {
		exponent = uint32(m.backoff.ExponentCap)
	}

	delayMs := int64(m.backoff.BaseMs) << exponent
	if delayMs > int64(m.backoff.CapMs) {
		delayMs = int64(m.backoff.CapMs)
	}

	delay := time.Duration(delayMs) * time.Millisecond
	m.nextReconnect = m.clock.Now().UnixMilli() + delayMs
	m.state = WaitingReconnect

	log.Info().Msgf("reconnection attempt %d in %s", m.retryCount, delay)
	return delay
}

// strikeLimit returns the suspect-strike limit for rssi, or
// StrikesUnlimited below the weak band.
func (m *Machine) strikeLimit(rssi int8) int {
	switch {
	case rssi >= m.signal.GoodRSSI:
		return m.signal.GoodStrikes
	case rssi >= m.signal.MediumRSSI:
		return m.signal.MediumStrikes
	case rssi >= m.signal.WeakRSSI:
		return m.signal.WeakStrikes
	default:
		return StrikesUnlimited
	}
}

// HandleSuspectFailure counts one suspect-failure strike at the given
// signal level. When the band's strike limit is reached the machine
// moves to ErrorCredentials and the caller must persist the
// invalidation; the return value reports that invalidation.
func (m *Machine) HandleSuspectFailure(rssi int8) bool {
	limit := m.strikeLimit(rssi)
	m.suspectRetryCount++

	if limit != StrikesUnlimited && m.suspectRetryCount >= uint32(limit) {
		log.Error().Msgf(
			"suspect failure %d/%d at %d dBm, invalidating credentials",
			m.suspectRetryCount, limit, rssi,
		)
		m.state = ErrorCredentials
		return true
	}

	if limit == StrikesUnlimited {
		log.Warn().Msgf(
			"suspect failure %d at %d dBm (critical signal, never invalidating)",
			m.suspectRetryCount, rssi,
		)
	} else {
		log.Warn().Msgf(
			"suspect failure %d/%d at %d dBm", m.suspectRetryCount, limit, rssi,
		)
	}
	return false
}

// WaitDuration returns how long the worker may sleep before its next
// wakeup: WaitForever outside WaitingReconnect, zero once the
// reconnect deadline has passed, the remaining delta otherwise.
func (m *Machine) WaitDuration() time.Duration {
	if m.state != WaitingReconnect {
		return WaitForever
	}

	nowMs := m.clock.Now().UnixMilli()
	if m.nextReconnect > nowMs {
		return time.Duration(m.nextReconnect-nowMs) * time.Millisecond
	}
	return 0
}
