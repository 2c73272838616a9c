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

// commandMatrix maps (state, command) to an Action. The Exit column is
// all ERROR: the worker dispatches Exit before validation.
var commandMatrix = [stateCount][commandCount]Action{
	//                    START          STOP           CONNECT        DISCONNECT     EXIT
	Uninitialized:    {ActionError, ActionError, ActionError, ActionError, ActionError},
	Initializing:     {ActionError, ActionError, ActionError, ActionError, ActionError},
	Initialized:      {ActionExecute, ActionSkip, ActionError, ActionError, ActionError},
	Starting:         {ActionSkip, ActionExecute, ActionError, ActionError, ActionError},
	Started:          {ActionSkip, ActionExecute, ActionExecute, ActionSkip, ActionError},
	Connecting:       {ActionSkip, ActionExecute, ActionSkip, ActionExecute, ActionError},
	ConnectedNoIP:    {ActionSkip, ActionExecute, ActionSkip, ActionExecute, ActionError},
	ConnectedGotIP:   {ActionSkip, ActionExecute, ActionSkip, ActionExecute, ActionError},
	Disconnecting:    {ActionSkip, ActionExecute, ActionError, ActionSkip, ActionError},
	WaitingReconnect: {ActionSkip, ActionExecute, ActionExecute, ActionExecute, ActionError},
	ErrorCredentials: {ActionSkip, ActionExecute, ActionExecute, ActionExecute, ActionError},
	Stopping:         {ActionError, ActionSkip, ActionError, ActionError, ActionError},
}

// transitionMatrix maps (state, event) to the next state and the
// outcome bits to set. Cells not listed in the design are self-loops
// with no bits; they are spelled out so the table stays total.
var transitionMatrix = [stateCount][eventCount]EventOutcome{
	Uninitialized: {
		EventStaStart:        {Next: Uninitialized},
		EventStaStop:         {Next: Uninitialized},
		EventStaConnected:    {Next: Uninitialized},
		EventStaDisconnected: {Next: Uninitialized},
		EventGotIP:           {Next: Uninitialized},
		EventLostIP:          {Next: Uninitialized},
	},
	Initializing: {
		EventStaStart:        {Next: Initializing},
		EventStaStop:         {Next: Initializing},
		EventStaConnected:    {Next: Initializing},
		EventStaDisconnected: {Next: Initializing},
		EventGotIP:           {Next: Initializing},
		EventLostIP:          {Next: Initializing},
	},
	Initialized: {
		EventStaStart:        {Next: Initialized},
		EventStaStop:         {Next: Initialized},
		EventStaConnected:    {Next: Initialized},
		EventStaDisconnected: {Next: Initialized},
		EventGotIP:           {Next: Initialized},
		EventLostIP:          {Next: Initialized},
	},
	Starting: {
		EventStaStart:        {Next: Started, Bits: BitStarted},
		EventStaStop:         {Next: Starting},
		EventStaConnected:    {Next: Starting},
		EventStaDisconnected: {Next: Initialized, Bits: BitStartFailed},
		EventGotIP:           {Next: Starting},
		EventLostIP:          {Next: Starting},
	},
	Started: {
		EventStaStart:        {Next: Started},
		EventStaStop:         {Next: Started},
		EventStaConnected:    {Next: Started},
		EventStaDisconnected: {Next: Started},
		EventGotIP:           {Next: Started},
		EventLostIP:          {Next: Started},
	},
	Connecting: {
		EventStaStart:        {Next: Connecting},
		EventStaStop:         {Next: Connecting},
		EventStaConnected:    {Next: ConnectedNoIP},
		EventStaDisconnected: {Next: WaitingReconnect},
		EventGotIP:           {Next: ConnectedGotIP, Bits: BitConnected},
		EventLostIP:          {Next: Connecting},
	},
	ConnectedNoIP: {
		EventStaStart:        {Next: ConnectedNoIP},
		EventStaStop:         {Next: ConnectedNoIP},
		EventStaConnected:    {Next: ConnectedNoIP},
		EventStaDisconnected: {Next: WaitingReconnect},
		EventGotIP:           {Next: ConnectedGotIP, Bits: BitConnected},
		EventLostIP:          {Next: ConnectedNoIP},
	},
	ConnectedGotIP: {
		EventStaStart:        {Next: ConnectedGotIP},
		EventStaStop:         {Next: ConnectedGotIP},
		EventStaConnected:    {Next: ConnectedGotIP},
		EventStaDisconnected: {Next: WaitingReconnect},
		EventGotIP:           {Next: ConnectedGotIP},
		EventLostIP:          {Next: ConnectedNoIP},
	},
	Disconnecting: {
		EventStaStart:        {Next: Disconnecting},
		EventStaStop:         {Next: Disconnecting},
		EventStaConnected:    {Next: Disconnecting},
		EventStaDisconnected: {Next: Started, Bits: BitDisconnected},
		EventGotIP:           {Next: Disconnecting},
		EventLostIP:          {Next: Disconnecting},
	},
	WaitingReconnect: {
		EventStaStart:        {Next: WaitingReconnect},
		EventStaStop:         {Next: WaitingReconnect},
		EventStaConnected:    {Next: WaitingReconnect},
		EventStaDisconnected: {Next: WaitingReconnect},
		EventGotIP:           {Next: WaitingReconnect},
		EventLostIP:          {Next: WaitingReconnect},
	},
	ErrorCredentials: {
		EventStaStart:        {Next: ErrorCredentials},
		EventStaStop:         {Next: ErrorCredentials},
		EventStaConnected:    {Next: ErrorCredentials},
		EventStaDisconnected: {Next: ErrorCredentials},
		EventGotIP:           {Next: ErrorCredentials},
		EventLostIP:          {Next: ErrorCredentials},
	},
	Stopping: {
		EventStaStart:        {Next: Stopping},
		EventStaStop:         {Next: Initialized, Bits: BitStopped},
		EventStaConnected:    {Next: Stopping},
		EventStaDisconnected: {Next: Stopping},
		EventGotIP:           {Next: Stopping},
		EventLostIP:          {Next: Stopping},
	},
}
