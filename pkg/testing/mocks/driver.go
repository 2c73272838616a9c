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

package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/StationlinkProject/stationlink-core/pkg/wifi/hal"
)

// MockDriver is a mock implementation of the hal.Driver interface
// using testify/mock. It records the handlers passed to
// RegisterEventHandlers so tests can fire driver events.
type MockDriver struct {
	mock.Mock

	mu     sync.Mutex
	wifiCB hal.WifiEventHandler
	ipCB   hal.IPEventHandler
}

// InitNetif initializes the network interface layer
func (m *MockDriver) InitNetif() error {
	args := m.Called()
	return args.Error(0)
}

// CreateDefaultEventLoop creates the process-wide event loop
func (m *MockDriver) CreateDefaultEventLoop() error {
	args := m.Called()
	return args.Error(0)
}

// SetupStaNetif creates or adopts the default station netif
func (m *MockDriver) SetupStaNetif() error {
	args := m.Called()
	return args.Error(0)
}

// InitWifi initializes the WiFi driver stack
func (m *MockDriver) InitWifi() error {
	args := m.Called()
	return args.Error(0)
}

// SetModeSta puts the driver in station mode
func (m *MockDriver) SetModeSta() error {
	args := m.Called()
	return args.Error(0)
}

// Deinit tears down the WiFi driver stack
func (m *MockDriver) Deinit() error {
	args := m.Called()
	return args.Error(0)
}

// RegisterEventHandlers subscribes the two callbacks and records them
// for later use with FireWifiEvent and FireIPEvent
func (m *MockDriver) RegisterEventHandlers(wifiCB hal.WifiEventHandler, ipCB hal.IPEventHandler) error {
	m.mu.Lock()
	m.wifiCB = wifiCB
	m.ipCB = ipCB
	m.mu.Unlock()

	args := m.Called(wifiCB, ipCB)
	return args.Error(0)
}

// UnregisterEventHandlers drops the recorded callbacks
func (m *MockDriver) UnregisterEventHandlers() error {
	m.mu.Lock()
	m.wifiCB = nil
	m.ipCB = nil
	m.mu.Unlock()

	args := m.Called()
	return args.Error(0)
}

// Start powers up the station
func (m *MockDriver) Start() error {
	args := m.Called()
	return args.Error(0)
}

// Stop powers down the station
func (m *MockDriver) Stop() error {
	args := m.Called()
	return args.Error(0)
}

// Connect begins association using the stored station config
func (m *MockDriver) Connect() error {
	args := m.Called()
	return args.Error(0)
}

// Disconnect tears down the association
func (m *MockDriver) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}

// Restore resets driver-held configuration to factory defaults
func (m *MockDriver) Restore() error {
	args := m.Called()
	return args.Error(0)
}

// SetConfig stores the station config
func (m *MockDriver) SetConfig(cfg hal.StationConfig) error {
	args := m.Called(cfg)
	return args.Error(0)
}

// GetConfig returns the stored station config
func (m *MockDriver) GetConfig() (hal.StationConfig, error) {
	args := m.Called()
	if cfg, ok := args.Get(0).(hal.StationConfig); ok {
		return cfg, args.Error(1)
	}
	return hal.StationConfig{}, args.Error(1)
}

// FireWifiEvent delivers a raw WiFi event to the registered handler,
// if any. It reports whether a handler was registered.
func (m *MockDriver) FireWifiEvent(ev hal.WifiEvent) bool {
	m.mu.Lock()
	cb := m.wifiCB
	m.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(ev)
	return true
}

// FireIPEvent delivers a raw IP event to the registered handler, if
// any. It reports whether a handler was registered.
func (m *MockDriver) FireIPEvent(ev hal.IPEvent) bool {
	m.mu.Lock()
	cb := m.ipCB
	m.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(ev)
	return true
}
