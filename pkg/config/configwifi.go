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

package config

// Wifi holds the station manager tunables. The zero values of most
// fields are not usable; WifiDefaults is always layered underneath
// whatever the config file provides.
type Wifi struct {
	// DefaultSSID and DefaultPassword seed the driver config when it
	// holds no SSID at init time (build-time provisioning analog).
	DefaultSSID     string `toml:"default_ssid,omitempty"`
	DefaultPassword string `toml:"default_password,omitempty"`

	Backoff Backoff `toml:"backoff,omitempty"`
	Signal  Signal  `toml:"signal,omitempty"`

	// QueueSize bounds the unified command/event queue.
	QueueSize int `toml:"queue_size,omitempty"`
}

// Backoff controls the reconnection delay schedule.
type Backoff struct {
	BaseMs      int `toml:"base_ms,omitempty"`
	CapMs       int `toml:"cap_ms,omitempty"`
	ExponentCap int `toml:"exponent_cap,omitempty"`
}

// Signal maps RSSI bands to suspect-failure strike limits. A
// disconnect with a suspect reason counts a strike against the current
// band; hitting the band's limit invalidates the stored credentials.
// Below WeakRSSI the signal is considered too poor to blame the
// credentials and strikes never invalidate.
type Signal struct {
	GoodRSSI      int8 `toml:"good_rssi,omitempty"`
	MediumRSSI    int8 `toml:"medium_rssi,omitempty"`
	WeakRSSI      int8 `toml:"weak_rssi,omitempty"`
	GoodStrikes   int  `toml:"good_strikes,omitempty"`
	MediumStrikes int  `toml:"medium_strikes,omitempty"`
	WeakStrikes   int  `toml:"weak_strikes,omitempty"`
}

var WifiDefaults = Wifi{
	QueueSize: 10,
	Backoff: Backoff{
		BaseMs:      1000,
		CapMs:       300_000,
		ExponentCap: 8,
	},
	Signal: Signal{
		GoodRSSI:      -55,
		MediumRSSI:    -67,
		WeakRSSI:      -80,
		GoodStrikes:   1,
		MediumStrikes: 2,
		WeakStrikes:   5,
	},
}

func (c *Instance) Wifi() Wifi {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Wifi
}

func (c *Instance) SetWifiDefaults(ssid, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Wifi.DefaultSSID = ssid
	c.vals.Wifi.DefaultPassword = password
}
