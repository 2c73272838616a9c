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

// Package hal defines the interface to the low-level WiFi driver. The
// manager only ever talks to the driver through this interface, which
// keeps the driver mockable and the manager portable across driver
// implementations.
package hal

import "errors"

// Error kinds a driver implementation maps its native errors into.
// ErrAlreadyExists and ErrInvalidState from the bring-up operations
// mean the resource already exists and bring-up should continue.
var (
	ErrAlreadyExists = errors.New("hal: already exists")
	ErrInvalidState  = errors.New("hal: invalid state")
	ErrNotFound      = errors.New("hal: not found")
	ErrNoMem         = errors.New("hal: out of memory")
	ErrFailed        = errors.New("hal: operation failed")
	ErrTimeout       = errors.New("hal: timeout")
)

// SSIDMaxLen and PasswordMaxLen are the driver's hard field limits.
// Neither field is NUL-terminated on the wire.
const (
	SSIDMaxLen     = 32
	PasswordMaxLen = 64
)

// DisconnectReason is the driver's reason code attached to a station
// disconnect. Values follow the 802.11 reason-code space as extended
// by the driver vendor.
type DisconnectReason uint8

const (
	ReasonUnspecified        DisconnectReason = 1
	ReasonAuthExpire         DisconnectReason = 2
	ReasonAssocLeave         DisconnectReason = 8
	ReasonFourWayHSTimeout   DisconnectReason = 15
	Reason8021XAuthFailed    DisconnectReason = 23
	ReasonBeaconTimeout      DisconnectReason = 200
	ReasonNoAPFound          DisconnectReason = 201
	ReasonAuthFail           DisconnectReason = 202
	ReasonAssocFail          DisconnectReason = 203
	ReasonHandshakeTimeout   DisconnectReason = 204
	ReasonConnectionFail     DisconnectReason = 205
)

// Suspect reports whether a disconnect reason is ambiguous between
// wrong credentials and poor signal. Suspect reasons feed the
// RSSI-tiered strike counter instead of invalidating outright.
func (r DisconnectReason) Suspect() bool {
	switch r {
	case ReasonAuthFail, Reason8021XAuthFailed, ReasonFourWayHSTimeout,
		ReasonHandshakeTimeout, ReasonConnectionFail:
		return true
	default:
		return false
	}
}

// AuthMode selects the minimum auth threshold for the station config.
type AuthMode uint8

const (
	AuthOpen AuthMode = iota
	AuthWEP
	AuthWPAPSK
	AuthWPA2PSK
	AuthWPA3PSK
)

// ScanMethod selects how the driver scans for the configured AP.
type ScanMethod uint8

const (
	ScanFast ScanMethod = iota
	ScanAllChannel
)

// StationConfig is the driver-persisted station configuration. The
// driver stores it in its own non-volatile storage, so the SSID and
// password written here survive restarts without any help from the
// manager.
type StationConfig struct {
	SSID              string
	Password          string
	ScanMethod        ScanMethod
	AuthThreshold     AuthMode
	PMFCapable        bool
	PMFRequired       bool
	FailureRetryCount uint8
}

// WifiEventID identifies a raw event on the driver's WiFi event base.
// Only a subset is meaningful to the manager; the rest are dropped at
// translation.
type WifiEventID int32

const (
	WifiEventStaStart WifiEventID = iota
	WifiEventStaStop
	WifiEventStaConnected
	WifiEventStaDisconnected
	WifiEventScanDone
	WifiEventStaAuthModeChange
)

// IPEventID identifies a raw event on the driver's IP event base.
type IPEventID int32

const (
	IPEventStaGotIP IPEventID = iota
	IPEventStaLostIP
)

// WifiEvent is a raw WiFi driver event. Reason and RSSI are only
// populated for WifiEventStaDisconnected.
type WifiEvent struct {
	ID     WifiEventID
	Reason DisconnectReason
	RSSI   int8
}

// IPEvent is a raw IP stack event.
type IPEvent struct {
	ID IPEventID
}

// WifiEventHandler receives raw WiFi events. Handlers may be invoked
// from the driver's own event context and must not block.
type WifiEventHandler func(ev WifiEvent)

// IPEventHandler receives raw IP events under the same constraints.
type IPEventHandler func(ev IPEvent)

// Driver is the set of driver operations the manager consumes.
//
// Bring-up operations (InitNetif through SetModeSta) are idempotent at
// the contract level: implementations return ErrAlreadyExists or
// ErrInvalidState when the underlying resource exists, and callers
// treat that as success. All operations may be called only from one
// goroutine at a time; the manager never calls the driver concurrently.
type Driver interface {
	// InitNetif initializes the network interface layer.
	InitNetif() error
	// CreateDefaultEventLoop creates the process-wide event loop.
	CreateDefaultEventLoop() error
	// SetupStaNetif creates or adopts the default station netif.
	SetupStaNetif() error
	// InitWifi initializes the WiFi driver stack.
	InitWifi() error
	// SetModeSta puts the driver in station mode.
	SetModeSta() error
	// Deinit tears down the WiFi driver stack. The netif layer and
	// event loop are process-global and stay up.
	Deinit() error

	// RegisterEventHandlers subscribes the two callbacks to the raw
	// event stream. Handlers remain registered until
	// UnregisterEventHandlers.
	RegisterEventHandlers(wifiCB WifiEventHandler, ipCB IPEventHandler) error
	UnregisterEventHandlers() error

	// Start powers up the station. Completion is signaled by a
	// WifiEventStaStart event, not by this call returning.
	Start() error
	// Stop powers down the station; completion is WifiEventStaStop.
	Stop() error
	// Connect begins association using the stored station config.
	Connect() error
	// Disconnect tears down the association. The driver emits
	// WifiEventStaDisconnected only if a link attempt was in flight.
	Disconnect() error
	// Restore resets driver-held configuration to factory defaults.
	Restore() error

	SetConfig(cfg StationConfig) error
	GetConfig() (StationConfig, error)
}

// BringUpOK reports whether a bring-up operation error still counts as
// success (the resource already existed).
func BringUpOK(err error) bool {
	return err == nil || errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrInvalidState)
}
