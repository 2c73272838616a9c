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

package syncman

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StationlinkProject/stationlink-core/pkg/wifi/fsm"
)

func TestQueuePostAndReceive(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil, 10)
	require.Equal(t, 10, q.Cap())

	msg := Message{Kind: KindCommand, Cmd: fsm.CmdStart}
	require.NoError(t, q.Post(msg))
	assert.Equal(t, 1, q.Len())

	got, status := q.Receive(0)
	require.Equal(t, RecvMessage, status)
	assert.Equal(t, msg, got)
	assert.Equal(t, 0, q.Len())
}

func TestQueueFIFOOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil, 10)
	cmds := []fsm.Command{fsm.CmdStart, fsm.CmdConnect, fsm.CmdDisconnect, fsm.CmdStop}
	for _, cmd := range cmds {
		require.NoError(t, q.Post(Message{Kind: KindCommand, Cmd: cmd}))
	}

	for _, want := range cmds {
		got, status := q.Receive(0)
		require.Equal(t, RecvMessage, status)
		assert.Equal(t, want, got.Cmd)
	}
}

func TestQueueOverflow(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil, 10)
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Post(Message{Kind: KindCommand, Cmd: fsm.CmdStart}), "message %d", i+1)
	}

	err := q.Post(Message{Kind: KindCommand, Cmd: fsm.CmdStart})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 10, q.Len())
}

func TestQueueReceivePollEmpty(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil, 10)
	_, status := q.Receive(0)
	assert.Equal(t, RecvTimeout, status)
}

func TestQueueReceiveBoundedTimeout(t *testing.T) {
	t.Parallel()

	clk := clockwork.NewFakeClock()
	q := NewQueue(clk, 10)

	done := make(chan RecvStatus, 1)
	go func() {
		_, status := q.Receive(time.Second)
		done <- status
	}()

	// The receiver must be parked on the timer before we advance.
	clk.BlockUntil(1)
	clk.Advance(time.Second)

	select {
	case status := <-done:
		assert.Equal(t, RecvTimeout, status)
	case <-time.After(2 * time.Second):
		t.Fatal("receive did not time out")
	}
}

func TestQueueReceiveCancelledByMessage(t *testing.T) {
	t.Parallel()

	clk := clockwork.NewFakeClock()
	q := NewQueue(clk, 10)

	type result struct {
		msg    Message
		status RecvStatus
	}
	done := make(chan result, 1)
	go func() {
		msg, status := q.Receive(time.Hour)
		done <- result{msg: msg, status: status}
	}()

	clk.BlockUntil(1)
	require.NoError(t, q.Post(Message{Kind: KindCommand, Cmd: fsm.CmdExit}))

	select {
	case got := <-done:
		require.Equal(t, RecvMessage, got.status)
		assert.Equal(t, fsm.CmdExit, got.msg.Cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("message did not cancel the bounded receive")
	}
}

func TestQueueSendBlocksUntilSlotFree(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil, 1)
	require.NoError(t, q.Post(Message{Kind: KindCommand, Cmd: fsm.CmdStart}))

	sent := make(chan error, 1)
	go func() {
		sent <- q.Send(context.Background(), Message{Kind: KindCommand, Cmd: fsm.CmdStop})
	}()

	select {
	case err := <-sent:
		t.Fatalf("send returned before a slot freed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	_, status := q.Receive(0)
	require.Equal(t, RecvMessage, status)

	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not complete")
	}
}

func TestQueueSendContextCancel(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil, 1)
	require.NoError(t, q.Post(Message{Kind: KindCommand, Cmd: fsm.CmdStart}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Send(ctx, Message{Kind: KindCommand, Cmd: fsm.CmdStop})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil, 10)
	require.NoError(t, q.Post(Message{Kind: KindCommand, Cmd: fsm.CmdStart}))
	q.Close()
	q.Close() // safe to repeat

	assert.ErrorIs(t, q.Post(Message{}), ErrClosed)
	assert.ErrorIs(t, q.Send(context.Background(), Message{}), ErrClosed)

	// Buffered messages drain before the close is reported.
	msg, status := q.Receive(-1)
	require.Equal(t, RecvMessage, status)
	assert.Equal(t, fsm.CmdStart, msg.Cmd)

	_, status = q.Receive(-1)
	assert.Equal(t, RecvClosed, status)
}

func TestQueueEventMessagePayload(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil, 10)
	msg := Message{
		Kind:   KindEvent,
		Event:  fsm.EventStaDisconnected,
		Reason: 15,
		RSSI:   -63,
	}
	require.NoError(t, q.Post(msg))

	got, status := q.Receive(0)
	require.Equal(t, RecvMessage, status)
	assert.Equal(t, msg, got)
}
