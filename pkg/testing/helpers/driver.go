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

package helpers

import (
	"sync"

	"github.com/StationlinkProject/stationlink-core/pkg/wifi/hal"
)

// FakeDriver is a stateful in-memory hal.Driver for tests. It stores
// the station config like the real driver's NVS does, records
// operation calls, and can emit driver events either automatically
// (AutoStartEvent/AutoStopEvent) or explicitly via FireWifi/FireIP.
//
// The zero value is usable: all operations succeed and no events fire
// on their own.
type FakeDriver struct {
	wifiCB hal.WifiEventHandler
	ipCB   hal.IPEventHandler

	// Err fields make the matching operation fail.
	SetModeStaErr error
	StartErr      error
	StopErr       error
	ConnectErr    error
	DisconnectErr error
	SetConfigErr  error
	GetConfigErr  error

	// AutoStartEvent fires STA_START from Start; AutoStopEvent fires
	// STA_STOP from Stop. Connect never auto-fires: tests drive the
	// association outcome explicitly.
	AutoStartEvent bool
	AutoStopEvent  bool

	cfg      hal.StationConfig
	restored bool

	startCalls      int
	stopCalls       int
	connectCalls    int
	disconnectCalls int

	mu sync.Mutex
}

// NewFakeDriver returns a FakeDriver that fires the start/stop
// completion events automatically, which is what most lifecycle tests
// want.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		AutoStartEvent: true,
		AutoStopEvent:  true,
	}
}

func (d *FakeDriver) InitNetif() error              { return nil }
func (d *FakeDriver) CreateDefaultEventLoop() error { return nil }
func (d *FakeDriver) SetupStaNetif() error          { return nil }
func (d *FakeDriver) InitWifi() error               { return nil }
func (d *FakeDriver) SetModeSta() error             { return d.SetModeStaErr }
func (d *FakeDriver) Deinit() error                 { return nil }

func (d *FakeDriver) RegisterEventHandlers(wifiCB hal.WifiEventHandler, ipCB hal.IPEventHandler) error {
	d.mu.Lock()
	d.wifiCB = wifiCB
	d.ipCB = ipCB
	d.mu.Unlock()
	return nil
}

func (d *FakeDriver) UnregisterEventHandlers() error {
	d.mu.Lock()
	d.wifiCB = nil
	d.ipCB = nil
	d.mu.Unlock()
	return nil
}

func (d *FakeDriver) Start() error {
	d.mu.Lock()
	d.startCalls++
	err := d.StartErr
	auto := d.AutoStartEvent
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if auto {
		d.FireWifi(hal.WifiEvent{ID: hal.WifiEventStaStart})
	}
	return nil
}

func (d *FakeDriver) Stop() error {
	d.mu.Lock()
	d.stopCalls++
	err := d.StopErr
	auto := d.AutoStopEvent
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if auto {
		d.FireWifi(hal.WifiEvent{ID: hal.WifiEventStaStop})
	}
	return nil
}

func (d *FakeDriver) Connect() error {
	d.mu.Lock()
	d.connectCalls++
	err := d.ConnectErr
	d.mu.Unlock()
	return err
}

func (d *FakeDriver) Disconnect() error {
	d.mu.Lock()
	d.disconnectCalls++
	err := d.DisconnectErr
	d.mu.Unlock()
	return err
}

func (d *FakeDriver) Restore() error {
	d.mu.Lock()
	d.cfg = hal.StationConfig{}
	d.restored = true
	d.mu.Unlock()
	return nil
}

func (d *FakeDriver) SetConfig(cfg hal.StationConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SetConfigErr != nil {
		return d.SetConfigErr
	}
	d.cfg = cfg
	return nil
}

func (d *FakeDriver) GetConfig() (hal.StationConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.GetConfigErr != nil {
		return hal.StationConfig{}, d.GetConfigErr
	}
	return d.cfg, nil
}

// FireWifi delivers a raw WiFi event to the registered handler, if
// any.
func (d *FakeDriver) FireWifi(ev hal.WifiEvent) bool {
	d.mu.Lock()
	cb := d.wifiCB
	d.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(ev)
	return true
}

// FireIP delivers a raw IP event to the registered handler, if any.
func (d *FakeDriver) FireIP(ev hal.IPEvent) bool {
	d.mu.Lock()
	cb := d.ipCB
	d.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(ev)
	return true
}

// FireDisconnected is shorthand for a STA_DISCONNECTED event with the
// given reason and signal level.
func (d *FakeDriver) FireDisconnected(reason hal.DisconnectReason, rssi int8) bool {
	return d.FireWifi(hal.WifiEvent{
		ID:     hal.WifiEventStaDisconnected,
		Reason: reason,
		RSSI:   rssi,
	})
}

// Restored reports whether Restore was called.
func (d *FakeDriver) Restored() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.restored
}

// StartCalls returns the number of Start invocations.
func (d *FakeDriver) StartCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startCalls
}

// StopCalls returns the number of Stop invocations.
func (d *FakeDriver) StopCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopCalls
}

// ConnectCalls returns the number of Connect invocations.
func (d *FakeDriver) ConnectCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectCalls
}

// DisconnectCalls returns the number of Disconnect invocations.
func (d *FakeDriver) DisconnectCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnectCalls
}
