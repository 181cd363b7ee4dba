package inventory

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReplayIsOrderIndependent(t *testing.T) {
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	events := []Event{
		{Seq: 1, Kind: KindReceipt, Quantity: 100, OccurredAt: base},
		{Seq: 2, Kind: KindOutbound, Quantity: 30, OccurredAt: base.Add(time.Hour)},
		{Seq: 3, Kind: KindInbound, Quantity: 30, OccurredAt: base.Add(2 * time.Hour)},
		{Seq: 4, Kind: KindShrinkage, Quantity: 5, OccurredAt: base.Add(2 * time.Hour)},
		{Seq: 5, Kind: KindAdjustment, Quantity: -3, OccurredAt: base.Add(3 * time.Hour)},
		{Seq: 6, Kind: KindAssignment, Quantity: 40, OccurredAt: base.Add(3 * time.Hour)},
		{Seq: 7, Kind: KindClose, Quantity: 92, OccurredAt: base.Add(4 * time.Hour)},
	}
	want := Replay(events)
	require.EqualValues(t, 92, want)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Event(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Replay(shuffled))
	}
}

func TestReplayDoesNotMutateInput(t *testing.T) {
	base := time.Now()
	events := []Event{
		{Seq: 2, Kind: KindPick, Quantity: 1, OccurredAt: base.Add(time.Minute)},
		{Seq: 1, Kind: KindReceipt, Quantity: 5, OccurredAt: base},
	}
	Replay(events)
	require.EqualValues(t, 2, events[0].Seq)
}

func TestEventKindDelta(t *testing.T) {
	cases := []struct {
		kind EventKind
		qty  int64
		want int64
	}{
		{KindReceipt, 10, 10},
		{KindInbound, 4, 4},
		{KindAdjustmentPositive, 2, 2},
		{KindOutbound, 3, -3},
		{KindPick, 3, -3},
		{KindAllocationPick, 3, -3},
		{KindShrinkage, 1, -1},
		{KindAdjustmentNegative, 6, -6},
		{KindAdjustment, -6, -6},
		{KindAdjustment, 6, 6},
		{KindClose, 50, 0},
		{KindAssignment, 50, 0},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			require.Equal(t, tc.want, tc.kind.Delta(tc.qty))
		})
	}
	require.False(t, EventKind("TELEPORT").IsValid())
}

func TestSellableNeverNegative(t *testing.T) {
	require.EqualValues(t, 7, Sellable(10, 3))
	require.EqualValues(t, 0, Sellable(10, 10))
	require.EqualValues(t, 0, Sellable(5, 9))
	require.EqualValues(t, 0, Sellable(-4, 0))
}

func TestNextStatus(t *testing.T) {
	cases := []struct {
		name     string
		current  Status
		onHand   int64
		sellable int64
		want     Status
	}{
		{"active", StatusDepleted, 10, 10, StatusActive},
		{"fully reserved", StatusActive, 10, 0, StatusReserved},
		{"empty", StatusReserved, 0, 0, StatusDepleted},
		{"negative", StatusActive, -2, 0, StatusDepleted},
		{"blocked sticks", StatusBlocked, 10, 10, StatusBlocked},
		{"blocked sticks when empty", StatusBlocked, 0, 0, StatusBlocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, NextStatus(tc.current, tc.onHand, tc.sellable))
		})
	}
}

func TestAllocationTransitions(t *testing.T) {
	require.True(t, AllocationOpen.CanTransition(AllocationConfirmed))
	require.True(t, AllocationOpen.CanTransition(AllocationCancelled))
	require.True(t, AllocationConfirmed.CanTransition(AllocationCancelled))
	require.False(t, AllocationConfirmed.CanTransition(AllocationOpen))
	require.False(t, AllocationCancelled.CanTransition(AllocationOpen))
	require.False(t, AllocationCancelled.CanTransition(AllocationConfirmed))

	alloc := &Allocation{Status: AllocationCancelled}
	require.ErrorIs(t, alloc.Transition(AllocationConfirmed), ErrAllocationState)
	require.Equal(t, AllocationCancelled, alloc.Status)
}
