package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinCorr/internal/domain/models"
	"FinCorr/internal/services/features"
	pkgch "FinCorr/pkg/clickhouse"
	applogger "FinCorr/pkg/logger"
)

// DefaultClosesTable holds one close per ticker and trading day.
const DefaultClosesTable = "fincorr.daily_closes"

// ClosesSchema returns the DDL for a closes table.
func ClosesSchema(table string) []string {
	db := "fincorr"
	if i := strings.IndexByte(table, '.'); i > 0 {
		db = table[:i]
	}
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            day    Date,
            close  Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, day)`, table),
	}
}

// CHPriceStore implements PriceSeriesStore backed by ClickHouse daily closes.
type CHPriceStore struct {
	db              *sql.DB
	table           string
	minObservations int
	l               *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client, table string, minObservations int) *CHPriceStore {
	if table == "" {
		table = DefaultClosesTable
	}
	return &CHPriceStore{db: ch.DB(), table: table, minObservations: minObservations}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceStore) FetchAlignedReturns(ctx context.Context, tickers []string, dr models.DateRange) (map[string][]float64, error) {
	if err := features.ValidateRange(dr); err != nil {
		return nil, err
	}
	history, err := s.closes(ctx, tickers, dr)
	if err != nil {
		return nil, err
	}
	return features.AlignedReturns(tickers, history, s.minObservations)
}

func (s *CHPriceStore) closes(ctx context.Context, tickers []string, dr models.DateRange) (map[string][]models.ClosePoint, error) {
	start := time.Now()
	q, args := buildClosesQuery(s.table, tickers, dr)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse closes query error",
				applogger.String("table", s.table),
				applogger.Strings("tickers", tickers),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("%w: query closes: %w", models.ErrUpstreamData, err)
	}
	defer rows.Close()

	out := make(map[string][]models.ClosePoint, len(tickers))
	n := 0
	for rows.Next() {
		var (
			symbol string
			p      models.ClosePoint
		)
		if err := rows.Scan(&symbol, &p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("%w: scan close: %w", models.ErrUpstreamData, err)
		}
		out[symbol] = append(out[symbol], p)
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", models.ErrUpstreamData, err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse closes ok",
			applogger.String("table", s.table),
			applogger.Int("tickers", len(tickers)),
			applogger.Int("rows", n),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func buildClosesQuery(table string, tickers []string, dr models.DateRange) (string, []interface{}) {
	args := make([]interface{}, 0, len(tickers)+2)
	marks := make([]string, len(tickers))
	for i, t := range tickers {
		marks[i] = "?"
		args = append(args, t)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT symbol, day, close FROM %s WHERE symbol IN (%s)", table, strings.Join(marks, ", "))
	if !dr.From.IsZero() {
		b.WriteString(" AND day >= ?")
		args = append(args, dr.From)
	}
	if !dr.To.IsZero() {
		b.WriteString(" AND day <= ?")
		args = append(args, dr.To)
	}
	b.WriteString(" ORDER BY symbol, day")
	return b.String(), args
}
