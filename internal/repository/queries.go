package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type assetRow struct {
	ID         int32
	Symbol     string
	Name       string
	Type       string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

type barRow struct {
	Bucket  *time.Time
	AssetID int32
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  decimal.Decimal
}

type adjustmentRow struct {
	AssetID       int32
	EffectiveDate *time.Time
	Factor        decimal.Decimal
}

type haltRow struct {
	AssetID int32
	Date    *time.Time
	Halted  bool
}

type selectBarsParams struct {
	TimeBucket string
	AssetID    int32
	StartTime  *time.Time
	EndTime    *time.Time
}

type selectHaltsParams struct {
	AssetID   int32
	StartTime *time.Time
	EndTime   *time.Time
}

type queries struct {
	conn *pgxpool.Pool
}

const selectAssetBySymbolSQL = `
SELECT id, symbol, name, type, created_at, modified_at
FROM assets
WHERE symbol = $1`

func (q *queries) SelectAssetBySymbol(ctx context.Context, symbol string) (assetRow, error) {
	rows, err := q.conn.Query(ctx, selectAssetBySymbolSQL, symbol)
	if err != nil {
		return assetRow{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByPos[assetRow])
}

// Bars are stored at minute granularity; time_bucket aggregates them to the
// requested interval on the way out.
const selectBarsSQL = `
SELECT time_bucket($1::interval, ts) AS bucket,
       asset_id,
       first(open, ts)  AS open,
       max(high)        AS high,
       min(low)         AS low,
       last(close, ts)  AS close,
       sum(volume)      AS volume
FROM bars
WHERE asset_id = $2 AND ts >= $3 AND ts < $4
GROUP BY bucket, asset_id
ORDER BY bucket`

func (q *queries) SelectBars(ctx context.Context, arg selectBarsParams) ([]barRow, error) {
	rows, err := q.conn.Query(ctx, selectBarsSQL,
		arg.TimeBucket, arg.AssetID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[barRow])
}

const selectAdjustmentsSQL = `
SELECT asset_id, effective_date, factor
FROM adjustment_factors
WHERE asset_id = $1
ORDER BY effective_date`

func (q *queries) SelectAdjustments(ctx context.Context, assetID int32) ([]adjustmentRow, error) {
	rows, err := q.conn.Query(ctx, selectAdjustmentsSQL, assetID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[adjustmentRow])
}

const selectHaltsSQL = `
SELECT asset_id, halt_date, halted
FROM trading_halts
WHERE asset_id = $1 AND halt_date >= $2 AND halt_date < $3
ORDER BY halt_date`

func (q *queries) SelectHalts(ctx context.Context, arg selectHaltsParams) ([]haltRow, error) {
	rows, err := q.conn.Query(ctx, selectHaltsSQL,
		arg.AssetID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[haltRow])
}
