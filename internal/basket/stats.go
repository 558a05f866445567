package basket

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/kushankb/burdens-app/internal/catalog"
)

// LoadAnalytics mirrors the feature collection into a DuckDB table so
// ad-hoc SQL over the dataset works alongside the canned aggregates.
// It is a no-op without a database.
func (s *Service) LoadAnalytics(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	s.mu.RLock()
	features := s.fc.Features
	s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE OR REPLACE TABLE breadbaskets (
		id VARCHAR,
		name VARCHAR,
		food_group VARCHAR,
		production DOUBLE,
		lon DOUBLE,
		lat DOUBLE
	)`); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO breadbaskets VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, f := range features {
		pt := f.Geometry.(orb.Point)
		production, _ := toFloat(f.Properties["production"])
		group := catalog.FoodGroupFor(stringProp(f, "food_group"))
		if _, err := stmt.ExecContext(ctx,
			stringProp(f, "id"), stringProp(f, "name"), group.Key,
			production, pt[0], pt[1]); err != nil {
			return fmt.Errorf("insert %q: %w", stringProp(f, "id"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("breadbaskets table loaded", "rows", len(features))
	return nil
}

// GroupTotals aggregates basket count and production per food group,
// largest production first. DuckDB does the work when available, with
// an in-memory fallback so the endpoint never needs the database.
func (s *Service) GroupTotals(ctx context.Context) ([]GroupTotal, error) {
	if s.db != nil {
		totals, err := s.groupTotalsSQL(ctx)
		if err == nil {
			return totals, nil
		}
		s.logger.Warn("stats query fell back to in-memory aggregation", "error", err)
	}
	return s.groupTotalsMemory(), nil
}

func (s *Service) groupTotalsSQL(ctx context.Context) ([]GroupTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT food_group, COUNT(*), SUM(production)
		FROM breadbaskets
		GROUP BY food_group
		ORDER BY SUM(production) DESC, food_group`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []GroupTotal
	for rows.Next() {
		var t GroupTotal
		if err := rows.Scan(&t.Key, &t.Baskets, &t.Production); err != nil {
			return nil, err
		}
		group := catalog.FoodGroupFor(t.Key)
		t.Label = group.Label
		t.Color = group.Color
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (s *Service) groupTotalsMemory() []GroupTotal {
	s.mu.RLock()
	features := s.fc.Features
	s.mu.RUnlock()

	acc := make(map[string]*GroupTotal)
	for _, f := range features {
		group := catalog.FoodGroupFor(stringProp(f, "food_group"))
		t, ok := acc[group.Key]
		if !ok {
			t = &GroupTotal{Key: group.Key, Label: group.Label, Color: group.Color}
			acc[group.Key] = t
		}
		t.Baskets++
		if v, ok := toFloat(f.Properties["production"]); ok {
			t.Production += v
		}
	}

	totals := make([]GroupTotal, 0, len(acc))
	for _, t := range acc {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Production != totals[j].Production {
			return totals[i].Production > totals[j].Production
		}
		return totals[i].Key < totals[j].Key
	})
	return totals
}
