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

// Package credstore persists WiFi credentials and their validity flag.
// The credential bytes themselves live in the driver's own non-volatile
// config; the store only adds the valid flag, kept in a namespaced
// bucket so it survives manager deinit/init cycles independently of
// the credential bytes.
package credstore

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/StationlinkProject/stationlink-core/pkg/wifi/hal"
)

// DefaultNamespace is the store's bucket name.
const DefaultNamespace = "wifi_manager"

const validKey = "valid"

// Store persists the valid flag in a bolt bucket and reads/writes the
// credential bytes through the driver config. Write operations are
// serialized by the manager; IsValid is a lock-free read of the cached
// flag.
type Store struct {
	driver    hal.Driver
	db        *bolt.DB
	namespace string

	fallbackSSID     string
	fallbackPassword string

	valid atomic.Bool
}

// Open opens (or creates) the flag database at path. The cached flag
// starts false until LoadValidFlag runs.
func Open(path string, driver hal.Driver, namespace string) (*Store, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open flag database: %w", err)
	}

	return &Store{
		driver:    driver,
		db:        db,
		namespace: namespace,
	}, nil
}

// Close closes the flag database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close flag database: %w", err)
	}
	return nil
}

// SetFallback records the build-time default credentials consulted by
// EnsureConfigFallback.
func (s *Store) SetFallback(ssid, password string) {
	s.fallbackSSID = ssid
	s.fallbackPassword = password
}

// TruncateSSID clamps an SSID to the driver's field limit.
func TruncateSSID(ssid string) string {
	if len(ssid) > hal.SSIDMaxLen {
		return ssid[:hal.SSIDMaxLen]
	}
	return ssid
}

// TruncatePassword clamps a password to the driver's field limit.
func TruncatePassword(password string) string {
	if len(password) > hal.PasswordMaxLen {
		return password[:hal.PasswordMaxLen]
	}
	return password
}

// stationConfig builds the driver config used for every credential
// write: WPA2-PSK threshold, all-channel scan, PMF capable but not
// required, and no driver-side retries (the manager owns retry
// policy).
func stationConfig(ssid, password string) hal.StationConfig {
	return hal.StationConfig{
		SSID:              TruncateSSID(ssid),
		Password:          TruncatePassword(password),
		ScanMethod:        hal.ScanAllChannel,
		AuthThreshold:     hal.AuthWPA2PSK,
		PMFCapable:        true,
		PMFRequired:       false,
		FailureRetryCount: 0,
	}
}

// Save writes the credentials to the driver config and marks them
// valid.
func (s *Store) Save(ssid, password string) error {
	if err := s.driver.SetConfig(stationConfig(ssid, password)); err != nil {
		return fmt.Errorf("failed to set driver config: %w", err)
	}
	return s.SaveValidFlag(true)
}

// Load reads the credentials back from the driver config.
func (s *Store) Load() (ssid, password string, err error) {
	cfg, err := s.driver.GetConfig()
	if err != nil {
		return "", "", fmt.Errorf("failed to get driver config: %w", err)
	}
	return cfg.SSID, cfg.Password, nil
}

// Clear empties the SSID and password in the driver config, keeping
// the rest of the stored config intact, and marks the credentials
// invalid.
func (s *Store) Clear() error {
	cfg, err := s.driver.GetConfig()
	if err != nil {
		cfg = hal.StationConfig{}
	}
	cfg.SSID = ""
	cfg.Password = ""

	if err := s.driver.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to clear driver config: %w", err)
	}
	return s.SaveValidFlag(false)
}

// FactoryReset restores the driver's factory configuration and erases
// the store's namespace.
func (s *Store) FactoryReset() error {
	if err := s.driver.Restore(); err != nil {
		log.Warn().Err(err).Msg("driver restore failed during factory reset")
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(s.namespace)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(s.namespace))
	})
	if err != nil {
		return fmt.Errorf("failed to erase namespace: %w", err)
	}

	s.valid.Store(false)
	return nil
}

// IsValid reports the cached validity flag.
func (s *Store) IsValid() bool {
	return s.valid.Load()
}

// SaveValidFlag persists the flag and updates the cache.
func (s *Store) SaveValidFlag(valid bool) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(s.namespace))
		if err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", s.namespace, err)
		}
		v := []byte{0}
		if valid {
			v[0] = 1
		}
		return b.Put([]byte(validKey), v)
	})
	if err != nil {
		return fmt.Errorf("failed to save valid flag: %w", err)
	}

	s.valid.Store(valid)
	return nil
}

// LoadValidFlag refreshes the cache from disk. An absent key reads as
// invalid.
func (s *Store) LoadValidFlag() error {
	valid := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.namespace))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(validKey)); len(v) > 0 && v[0] != 0 {
			valid = true
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load valid flag: %w", err)
	}

	s.valid.Store(valid)
	return nil
}

// hasValidKey reports whether the flag key exists at all, which is how
// a fresh store is told apart from one that recorded invalid.
func (s *Store) hasValidKey() (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.namespace))
		if b == nil {
			return nil
		}
		found = b.Get([]byte(validKey)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check valid flag: %w", err)
	}
	return found, nil
}

// EnsureConfigFallback reconciles the driver config with the store at
// init time. If the driver holds no SSID and a fallback is configured,
// the fallback is written and marked valid. If the driver already
// holds an SSID but the flag key was never recorded, the credentials
// are assumed valid (they were provisioned out of band).
func (s *Store) EnsureConfigFallback() error {
	cfg, err := s.driver.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to get driver config: %w", err)
	}

	if cfg.SSID == "" {
		if s.fallbackSSID == "" {
			return nil
		}
		log.Info().Msgf("no SSID in driver, using configured default: %s", s.fallbackSSID)
		return s.Save(s.fallbackSSID, s.fallbackPassword)
	}

	log.Info().Msgf("driver already has SSID: %s", cfg.SSID)
	recorded, err := s.hasValidKey()
	if err != nil {
		return err
	}
	if !recorded {
		return s.SaveValidFlag(true)
	}
	return nil
}
