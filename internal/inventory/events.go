package inventory

import "context"

// EventSink receives ledger events after the transaction that wrote them commits.
type EventSink interface {
	LedgerEventsCommitted(ctx context.Context, events []Event) error
}

// Metrics records ledger activity.
type Metrics interface {
	ObserveLedgerEvent(kind string)
	ObservePalletStatus(from, to string)
}
