// Package repository loads bars, adjustment factors and halt records from
// Postgres. It is one possible bar data source; the engine itself only ever
// sees pre-loaded in-memory data.
package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrIntervalNotSupported = errors.New("interval not supported by datasource")
	ErrAssetNotFound        = errors.New("not found in datasource")
	ErrNoBars               = errors.New("no bars found in datasource")
)

type assetsRepository interface {
	SelectAssetBySymbol(ctx context.Context, symbol string) (assetRow, error)
}

type barsRepository interface {
	SelectBars(ctx context.Context, arg selectBarsParams) ([]barRow, error)
}

type corporateActionsRepository interface {
	SelectAdjustments(ctx context.Context, assetID int32) ([]adjustmentRow, error)
	SelectHalts(ctx context.Context, arg selectHaltsParams) ([]haltRow, error)
}

// Database holds the connection pool and the query implementations behind
// small interfaces so tests can swap in mocks.
type Database struct {
	assets  assetsRepository
	bars    barsRepository
	actions corporateActionsRepository
	conn    *pgxpool.Pool
}

// NewDatabase creates a Database and verifies connectivity.
func NewDatabase(dbURL string) (Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Database{}, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal codecs on every connection.
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return Database{}, err
	}
	if err := conn.Ping(context.Background()); err != nil {
		return Database{}, err
	}

	q := &queries{conn: conn}
	return Database{
		assets:  q,
		bars:    q,
		actions: q,
		conn:    conn,
	}, nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
