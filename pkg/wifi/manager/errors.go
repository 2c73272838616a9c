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

import "errors"

var (
	// ErrInvalidState means the command is illegal in the current
	// state, or a required sync primitive is not initialized.
	ErrInvalidState = errors.New("manager: invalid state")
	// ErrTimeout means a sync call's outcome bits did not set within
	// the deadline. For start and connect a best-effort rollback was
	// already fired.
	ErrTimeout = errors.New("manager: timeout")
	// ErrFailed means the driver reported an immediate error or the
	// worker raised a failure bit.
	ErrFailed = errors.New("manager: operation failed")
	// ErrNoMem means a required resource could not be allocated.
	ErrNoMem = errors.New("manager: out of memory")
)
