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

// Package manager is the station manager orchestrator: the public
// sync/async API, the worker that drains the unified command/event
// queue, and the credential surface.
//
// LOCKING RULES: mu protects the state machine. The worker holds it
// for the whole of one message (including the driver calls it makes);
// API readers take it briefly to snapshot state. Nothing sends to
// channels or waits on outcome bits while holding it.
package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/StationlinkProject/stationlink-core/pkg/config"
	"github.com/StationlinkProject/stationlink-core/pkg/helpers"
	"github.com/StationlinkProject/stationlink-core/pkg/helpers/syncutil"
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/credstore"
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/fsm"
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/hal"
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/syncman"
)

const (
	// deinitStopTimeout bounds the stop issued before tearing down.
	deinitStopTimeout = 2 * time.Second
	// workerExitTimeout bounds the wait for the worker to honor Exit.
	workerExitTimeout = time.Second
)

// Manager drives one WiFi station through a driver. Construct exactly
// one per driver; the driver underneath is itself a singleton.
type Manager struct {
	cfg       *config.Instance
	driver    hal.Driver
	clock     clockwork.Clock
	storePath string
	namespace string
	logDir    string

	machine    *fsm.Machine
	queue      *syncman.Queue
	bits       *syncman.BitGroup
	store      *credstore.Store
	workerDone chan struct{}

	mu syncutil.Mutex
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithClock injects the clock used for backoff deadlines, queue
// receive timeouts and API waits.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithNamespace overrides the credential store namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		m.namespace = namespace
	}
}

// WithLogging makes Init configure the global logger to write to a
// rotating file under logDir, at debug level when the config instance
// enables debug logging.
func WithLogging(logDir string) Option {
	return func(m *Manager) {
		m.logDir = logDir
	}
}

// New builds an uninitialized Manager. storePath is the credential
// flag database file.
func New(cfg *config.Instance, driver hal.Driver, storePath string, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		driver:    driver,
		storePath: storePath,
		namespace: credstore.DefaultNamespace,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	m.machine = fsm.New(m.clock, cfg.Wifi())
	return m
}

// GetState returns the current connection state.
func (m *Manager) GetState() fsm.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.CurrentState()
}

// Init brings up the driver stack, the sync primitives, the credential
// store and the worker. Calling it again after success is a no-op.
func (m *Manager) Init() error {
	m.mu.Lock()
	if m.machine.CurrentState() != fsm.Uninitialized {
		m.mu.Unlock()
		log.Info().Msg("already initialized or initializing")
		return nil
	}
	m.machine.TransitionTo(fsm.Initializing)
	m.mu.Unlock()

	if err := m.bringUp(); err != nil {
		// Roll back whatever was allocated before failing.
		if derr := m.Deinit(); derr != nil {
			log.Warn().Err(derr).Msg("rollback deinit failed")
		}
		return err
	}

	m.mu.Lock()
	m.machine.TransitionTo(fsm.Initialized)
	m.mu.Unlock()
	log.Info().Msg("wifi manager initialized")
	return nil
}

// bringUp runs the driver/bring-up sequence. Already-exists results
// from the shared global pieces count as success.
func (m *Manager) bringUp() error {
	if m.logDir != "" {
		if err := helpers.InitLogging(m.logDir, m.cfg.DebugLogging(), nil); err != nil {
			return fmt.Errorf("failed to init logging: %w", err)
		}
	}

	if err := m.driver.InitNetif(); !hal.BringUpOK(err) {
		return wrapBringUp("init netif", err)
	}
	if err := m.driver.CreateDefaultEventLoop(); !hal.BringUpOK(err) {
		return wrapBringUp("create event loop", err)
	}
	if err := m.driver.SetupStaNetif(); !hal.BringUpOK(err) {
		return wrapBringUp("setup sta netif", err)
	}
	if err := m.driver.InitWifi(); !hal.BringUpOK(err) {
		return wrapBringUp("init wifi", err)
	}
	if err := m.driver.SetModeSta(); !hal.BringUpOK(err) {
		return wrapBringUp("set sta mode", err)
	}

	wifiCfg := m.cfg.Wifi()
	queue := syncman.NewQueue(m.clock, wifiCfg.QueueSize)
	bits := syncman.NewBitGroup(m.clock)

	// The callbacks close over the queue handle only, never the
	// manager, so a late event after teardown cannot touch freed
	// manager state.
	wifiCB := translateWifiEvents(queue)
	ipCB := translateIPEvents(queue)

	m.mu.Lock()
	m.queue = queue
	m.bits = bits
	m.mu.Unlock()

	if err := m.driver.RegisterEventHandlers(wifiCB, ipCB); err != nil {
		return wrapBringUp("register event handlers", err)
	}

	store, err := credstore.Open(m.storePath, m.driver, m.namespace)
	if err != nil {
		return err
	}
	store.SetFallback(wifiCfg.DefaultSSID, wifiCfg.DefaultPassword)

	m.mu.Lock()
	m.store = store
	m.mu.Unlock()

	if err := store.LoadValidFlag(); err != nil {
		return err
	}
	if err := store.EnsureConfigFallback(); err != nil {
		log.Warn().Err(err).Msg("config fallback failed")
	}

	done := make(chan struct{})
	m.mu.Lock()
	m.workerDone = done
	m.mu.Unlock()
	go m.worker(queue, done)

	return nil
}

func wrapBringUp(op string, err error) error {
	log.Error().Err(err).Msgf("failed to %s", op)
	return err
}

// Deinit stops the station if needed, terminates the worker and tears
// down everything Init allocated. Process-global driver pieces (netif
// layer, default event loop) stay up for other components.
func (m *Manager) Deinit() error {
	state := m.GetState()
	log.Info().Msg("deinitializing wifi manager")
	if state == fsm.Uninitialized {
		log.Info().Msg("already uninitialized")
		return nil
	}

	if state.IsActive() {
		log.Info().Msg("wifi is running, stopping first")
		if err := m.StopSync(deinitStopTimeout); err != nil {
			log.Warn().Err(err).Msg("stop during deinit failed")
		}
	}

	m.stopWorker()

	if err := m.driver.Deinit(); err != nil {
		log.Warn().Err(err).Msg("driver deinit failed")
	}
	if err := m.driver.UnregisterEventHandlers(); err != nil {
		log.Warn().Err(err).Msg("unregister event handlers failed")
	}

	m.mu.Lock()
	queue := m.queue
	store := m.store
	m.queue = nil
	m.bits = nil
	m.store = nil
	m.machine.TransitionTo(fsm.Uninitialized)
	m.mu.Unlock()

	if queue != nil {
		queue.Close()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("credential store close failed")
		}
	}

	log.Info().Msg("wifi manager deinitialized")
	return nil
}

// stopWorker asks the worker to exit via the queue and waits a bounded
// interval for it. The worker's receive is cancellable by a new
// message even during backoff, so Exit is honored promptly.
func (m *Manager) stopWorker() {
	m.mu.Lock()
	done := m.workerDone
	queue := m.queue
	m.workerDone = nil
	m.mu.Unlock()
	if done == nil || queue == nil {
		return
	}

	log.Info().Msg("stopping wifi worker")
	exit := syncman.Message{Kind: syncman.KindCommand, Cmd: fsm.CmdExit}
	if err := queue.Post(exit); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		err = queue.Send(ctx, exit)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("failed to post exit command")
		}
	}

	select {
	case <-done:
		log.Info().Msg("wifi worker terminated")
	case <-time.After(workerExitTimeout):
		log.Warn().Msg("wifi worker did not exit in time, abandoning")
	}
}

// SetCredentials applies new credentials to the driver config, marks
// them valid and resets both retry counters. An in-flight association
// is torn down first. A reconnect already scheduled in
// WAITING_RECONNECT still fires at its deadline.
func (m *Manager) SetCredentials(ssid, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.machine.CurrentState()
	if state == fsm.Uninitialized || m.store == nil {
		return ErrInvalidState
	}

	log.Info().Msg("setting credentials")

	if state.IsActive() {
		log.Info().Msg("disconnecting before applying new credentials")
		if err := m.driver.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("disconnect before credential update failed")
		}
	}

	if err := m.store.Save(ssid, password); err != nil {
		log.Error().Err(err).Msg("failed to apply credentials")
		return err
	}

	m.machine.ResetRetries()
	if state == fsm.ErrorCredentials {
		m.machine.TransitionTo(fsm.Disconnected)
	}
	log.Info().Msg("credentials applied")
	return nil
}

// GetCredentials reads the stored credentials back from the driver.
func (m *Manager) GetCredentials() (ssid, password string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return "", "", ErrInvalidState
	}
	return m.store.Load()
}

// ClearCredentials empties the stored credentials and marks them
// invalid.
func (m *Manager) ClearCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.machine.CurrentState()
	if state == fsm.Uninitialized || m.store == nil {
		return ErrInvalidState
	}
	log.Info().Msg("clearing credentials")

	if err := m.store.Clear(); err != nil {
		return err
	}

	m.machine.ResetRetries()
	if state == fsm.ErrorCredentials {
		m.machine.TransitionTo(fsm.Disconnected)
	}
	return nil
}

// FactoryReset restores the driver's factory configuration, erases the
// credential namespace and drops back to INITIALIZED.
func (m *Manager) FactoryReset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.machine.CurrentState() == fsm.Uninitialized || m.store == nil {
		return ErrInvalidState
	}
	log.Info().Msg("factory reset")

	if err := m.store.FactoryReset(); err != nil {
		return err
	}

	m.machine.ResetRetries()
	m.machine.TransitionTo(fsm.Initialized)
	return nil
}

// IsCredentialsValid reports the cached credential validity flag.
func (m *Manager) IsCredentialsValid() bool {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()
	if store == nil {
		return false
	}
	return store.IsValid()
}
