package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quantbt/types"
)

var bucketForInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.FourHours:      "4 hours",
	types.Day:            "1 day",
	types.Week:           "1 week",
}

// GetAssetBySymbol retrieves a types.Asset by its symbol.
func (db *Database) GetAssetBySymbol(ctx context.Context, symbol string) (*types.Asset, error) {
	asset, err := db.assets.SelectAssetBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("symbol %s %w", symbol, ErrAssetNotFound)
		}
		return nil, err
	}
	out := &types.Asset{
		Id:     int(asset.ID),
		Symbol: asset.Symbol,
		Name:   asset.Name,
		Type:   types.AssetType(asset.Type),
	}
	if asset.CreatedAt != nil {
		out.CreatedAt = *asset.CreatedAt
	}
	if asset.ModifiedAt != nil {
		out.ModifiedAt = *asset.ModifiedAt
	}
	return out, nil
}

// GetBars loads a symbol's bars in [start, end) aggregated to the requested
// interval.
func (db *Database) GetBars(ctx context.Context, asset *types.Asset, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	bucket, ok := bucketForInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	args := selectBarsParams{
		TimeBucket: bucket,
		AssetID:    int32(asset.Id),
		StartTime:  &start,
		EndTime:    &end,
	}
	rows, err := db.bars.SelectBars(ctx, args)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("symbol %s: %w", asset.Symbol, ErrNoBars)
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("symbol %s: %w", asset.Symbol, ErrNoBars)
	}
	return convertBars(rows, interval, asset.Symbol), nil
}

// GetAdjustments loads a symbol's full adjustment-factor history.
func (db *Database) GetAdjustments(ctx context.Context, asset *types.Asset) ([]types.AdjustmentFactor, error) {
	rows, err := db.actions.SelectAdjustments(ctx, int32(asset.Id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]types.AdjustmentFactor, 0, len(rows))
	for _, row := range rows {
		adj := types.AdjustmentFactor{
			Symbol: asset.Symbol,
			Factor: row.Factor,
		}
		if row.EffectiveDate != nil {
			adj.EffectiveDate = *row.EffectiveDate
		}
		out = append(out, adj)
	}
	return out, nil
}

// GetHalts loads halt records for a symbol in [start, end).
func (db *Database) GetHalts(ctx context.Context, asset *types.Asset, start, end time.Time) ([]types.HaltRecord, error) {
	args := selectHaltsParams{
		AssetID:   int32(asset.Id),
		StartTime: &start,
		EndTime:   &end,
	}
	rows, err := db.actions.SelectHalts(ctx, args)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]types.HaltRecord, 0, len(rows))
	for _, row := range rows {
		rec := types.HaltRecord{
			Symbol: asset.Symbol,
			Halted: row.Halted,
		}
		if row.Date != nil {
			rec.Date = *row.Date
		}
		out = append(out, rec)
	}
	return out, nil
}

func convertBars(rows []barRow, interval types.Interval, symbol string) []types.Bar {
	var bars []types.Bar
	for _, row := range rows {
		bar := types.Bar{
			Symbol:   symbol,
			Open:     row.Open,
			High:     row.High,
			Low:      row.Low,
			Close:    row.Close,
			Volume:   row.Volume,
			Interval: interval,
		}
		if row.Bucket != nil {
			bar.Timestamp = *row.Bucket
		}
		bars = append(bars, bar)
	}
	return bars
}
