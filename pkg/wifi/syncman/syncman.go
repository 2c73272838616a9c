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

// Package syncman holds the synchronization primitives between the
// manager API, the driver event callbacks and the worker: a bounded
// message queue and the outcome-bit group blocking callers wait on.
package syncman

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/StationlinkProject/stationlink-core/pkg/wifi/fsm"
	"github.com/StationlinkProject/stationlink-core/pkg/wifi/hal"
)

// DefaultQueueSize bounds the unified command/event queue.
const DefaultQueueSize = 10

var (
	// ErrQueueFull is returned by non-blocking posts when the queue is
	// at capacity.
	ErrQueueFull = errors.New("syncman: queue full")
	// ErrClosed is returned by producers after Close.
	ErrClosed = errors.New("syncman: closed")
)

// MessageKind discriminates queue messages.
type MessageKind uint8

const (
	KindCommand MessageKind = iota
	KindEvent
)

// Message carries either a command or a driver event through the
// unified queue. Reason and RSSI are only meaningful for
// EventStaDisconnected.
type Message struct {
	Kind   MessageKind
	Cmd    fsm.Command
	Event  fsm.Event
	Reason hal.DisconnectReason
	RSSI   int8
}

// RecvStatus reports how a Receive ended.
type RecvStatus uint8

const (
	// RecvMessage means a message was dequeued.
	RecvMessage RecvStatus = iota
	// RecvTimeout means the bounded wait elapsed with no message.
	RecvTimeout
	// RecvClosed means the queue was closed and drained.
	RecvClosed
)

// Queue is the bounded MPSC message queue. Producers are the API
// goroutines (blocking or non-blocking) and the driver event callbacks
// (always non-blocking); the single consumer is the worker.
type Queue struct {
	clock     clockwork.Clock
	ch        chan Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue builds a queue of the given capacity; sizes below one fall
// back to DefaultQueueSize.
func NewQueue(clock clockwork.Clock, capacity int) *Queue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if capacity < 1 {
		capacity = DefaultQueueSize
	}
	return &Queue{
		clock: clock,
		ch:    make(chan Message, capacity),
		done:  make(chan struct{}),
	}
}

// Post enqueues without blocking. Event callbacks run in the driver's
// event context and must use this path.
func (q *Queue) Post(msg Message) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Send enqueues, blocking until a slot frees, the context is done, or
// the queue closes. Synchronous API callers use this path.
func (q *Queue) Send(ctx context.Context, msg Message) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- msg:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive dequeues one message. A negative wait blocks until a message
// arrives or the queue closes; zero polls; a positive wait bounds the
// block. A pending message always wins over an expired deadline.
func (q *Queue) Receive(wait time.Duration) (Message, RecvStatus) {
	if wait < 0 {
		select {
		case msg := <-q.ch:
			return msg, RecvMessage
		case <-q.done:
			return q.drain()
		}
	}

	select {
	case msg := <-q.ch:
		return msg, RecvMessage
	default:
	}
	if wait == 0 {
		return Message{}, RecvTimeout
	}

	timer := q.clock.NewTimer(wait)
	defer timer.Stop()
	select {
	case msg := <-q.ch:
		return msg, RecvMessage
	case <-timer.Chan():
		return Message{}, RecvTimeout
	case <-q.done:
		return q.drain()
	}
}

// drain hands out messages already buffered at close time before
// reporting RecvClosed.
func (q *Queue) drain() (Message, RecvStatus) {
	select {
	case msg := <-q.ch:
		return msg, RecvMessage
	default:
		return Message{}, RecvClosed
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Close rejects further producers and unblocks the consumer once the
// buffer drains. Safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}
