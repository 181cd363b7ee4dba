package inventory

import "context"

// TxRepository exposes the transactional persistence used by the ledger and
// the pallet operations. Implementations must hold a row lock between
// LockPallet and the end of the transaction.
type TxRepository interface {
	InsertPallet(ctx context.Context, pallet Pallet) (int64, error)
	GetPallet(ctx context.Context, id int64) (Pallet, error)
	LockPallet(ctx context.Context, id int64) (Pallet, error)
	// SavePalletStatus stores status and bumps the pallet version even when
	// the status is unchanged, so concurrent writers conflict.
	SavePalletStatus(ctx context.Context, id int64, status Status) error
	UpdatePalletLocation(ctx context.Context, id, warehouseID int64, location string) error
	ListPalletIDs(ctx context.Context) ([]int64, error)
	// ListCandidatePallets returns ACTIVE pallets ordered by received date then id.
	ListCandidatePallets(ctx context.Context, warehouseID, productID int64) ([]Pallet, error)
	DeletePallet(ctx context.Context, id int64) error

	// InsertEvent assigns the event id and the next per-pallet sequence.
	InsertEvent(ctx context.Context, evt Event) (Event, error)
	ListEvents(ctx context.Context, palletID int64) ([]Event, error)
	DeleteEvents(ctx context.Context, palletID int64) error

	InsertAllocation(ctx context.Context, alloc Allocation) (int64, error)
	GetAllocation(ctx context.Context, id int64) (Allocation, error)
	UpdateAllocationStatus(ctx context.Context, id int64, status AllocationStatus) error
	SumOpenAllocations(ctx context.Context, palletID int64) (int64, error)
	CountAllocations(ctx context.Context, palletID int64) (int, error)
}

// Store opens inventory transactions.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
