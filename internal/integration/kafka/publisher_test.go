package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/orders"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestLedgerEventsKeyedByPallet(t *testing.T) {
	w := &recordingWriter{}
	p := NewWithWriter(w)

	events := []inventory.Event{
		{ID: 1, PalletID: 4, Seq: 1, Kind: inventory.KindReceipt, Quantity: 10},
		{ID: 2, PalletID: 5, Seq: 3, Kind: inventory.KindOutbound, Quantity: 2},
	}
	require.NoError(t, p.LedgerEventsCommitted(context.Background(), events))
	require.Len(t, w.msgs, 2)
	require.Equal(t, "pallet-4", string(w.msgs[0].Key))
	require.Equal(t, "pallet-5", string(w.msgs[1].Key))
	require.Equal(t, TypeLedgerEvent, string(w.msgs[0].Headers[0].Value))

	var decoded inventory.Event
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &decoded))
	require.Equal(t, inventory.KindOutbound, decoded.Kind)
	require.EqualValues(t, 3, decoded.Seq)
}

func TestLedgerEventsEmptyIsNoop(t *testing.T) {
	w := &recordingWriter{err: errors.New("unreachable")}
	require.NoError(t, NewWithWriter(w).LedgerEventsCommitted(context.Background(), nil))
}

func TestOrderStatusChangedWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewWithWriter(&recordingWriter{err: boom})

	err := p.OrderStatusChanged(context.Background(), orders.StatusChange{
		OrderID: 9, Number: "PED-000009", From: orders.StatusCreated, To: orders.StatusCancelled,
		Actor: shared.Actor{ID: 1, Role: "admin"}, At: time.Now(),
	})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "PED-000009")
}

func TestCloseClosesWriter(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, NewWithWriter(w).Close())
	require.True(t, w.closed)
}
