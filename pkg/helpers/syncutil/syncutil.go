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

//go:build !deadlock

// Package syncutil selects the lock implementation for the whole
// module. The default build aliases the standard library; building
// with -tags=deadlock swaps every lock for sasha-s/go-deadlock so
// lock-ordering mistakes in the manager's worker/API interplay
// surface during development runs.
package syncutil

import "sync"

// DeadlockEnabled reports which lock implementation this binary
// carries.
const DeadlockEnabled = false

// Mutex is the module's mutual exclusion lock.
type Mutex = sync.Mutex

// RWMutex is the module's reader/writer lock.
type RWMutex = sync.RWMutex
