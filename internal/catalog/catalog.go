// Package catalog provides read-only lookups of products, suppliers and
// pallet locations maintained by other systems.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// ErrNotFound indicates a missing catalog entry.
var ErrNotFound = fmt.Errorf("%w: catalog entry", shared.ErrNotFound)

// Product is the catalog view of a product.
type Product struct {
	ID   int64  `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// Supplier is the catalog view of a supplier.
type Supplier struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Catalog is the read-only lookup port.
type Catalog interface {
	Product(ctx context.Context, id int64) (Product, error)
	Supplier(ctx context.Context, id int64) (Supplier, error)
	WarehouseLocation(ctx context.Context, palletID int64) (string, error)
}

// Postgres reads the catalog tables.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs Postgres.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Product looks up a product by id.
func (p *Postgres) Product(ctx context.Context, id int64) (Product, error) {
	var out Product
	err := p.pool.QueryRow(ctx, `SELECT id, sku, name FROM products WHERE id=$1`, id).Scan(&out.ID, &out.SKU, &out.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return out, err
}

// Supplier looks up a supplier by id.
func (p *Postgres) Supplier(ctx context.Context, id int64) (Supplier, error) {
	var out Supplier
	err := p.pool.QueryRow(ctx, `SELECT id, name FROM suppliers WHERE id=$1`, id).Scan(&out.ID, &out.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("%w: supplier %d", ErrNotFound, id)
	}
	return out, err
}

// WarehouseLocation returns the bin location recorded on a pallet.
func (p *Postgres) WarehouseLocation(ctx context.Context, palletID int64) (string, error) {
	var location string
	err := p.pool.QueryRow(ctx, `SELECT location FROM pallets WHERE id=$1`, palletID).Scan(&location)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: pallet %d", ErrNotFound, palletID)
	}
	return location, err
}

// Static serves the catalog from maps. Used by tests and local runs.
type Static struct {
	Products  map[int64]Product
	Suppliers map[int64]Supplier
	Locations map[int64]string
}

// Product looks up a product by id.
func (s Static) Product(_ context.Context, id int64) (Product, error) {
	if p, ok := s.Products[id]; ok {
		return p, nil
	}
	return Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
}

// Supplier looks up a supplier by id.
func (s Static) Supplier(_ context.Context, id int64) (Supplier, error) {
	if sup, ok := s.Suppliers[id]; ok {
		return sup, nil
	}
	return Supplier{}, fmt.Errorf("%w: supplier %d", ErrNotFound, id)
}

// WarehouseLocation returns the configured location, empty when unknown.
func (s Static) WarehouseLocation(_ context.Context, palletID int64) (string, error) {
	return s.Locations[palletID], nil
}
