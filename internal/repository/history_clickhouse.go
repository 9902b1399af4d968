package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FlipSight/internal/domain/models"
	domrepo "FlipSight/internal/domain/repository"
	pkgch "FlipSight/pkg/clickhouse"
	applogger "FlipSight/pkg/logger"
)

// ClickHouseHistory implements HistoryStore on a MergeTree tick table.
type ClickHouseHistory struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

func NewClickHouseHistory(ch *pkgch.Client, table string) domrepo.HistoryStore {
	return &ClickHouseHistory{client: ch, db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseHistory) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures the tick table exists. Ticks older than 90 days age out;
// the volatility window never looks back further than 30.
func (s *ClickHouseHistory) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts      DateTime,
            item_id UInt32,
            bid     Int64,
            ask     Int64
        ) ENGINE = MergeTree()
        PARTITION BY toYYYYMM(ts)
        ORDER BY (item_id, ts)
        TTL ts + INTERVAL 90 DAY
    `, s.table)
	return s.client.InitSchema(ctx, []string{stmt})
}

func (s *ClickHouseHistory) StoreBatch(ctx context.Context, ticks []*models.QuoteTick) error {
	if len(ticks) == 0 {
		return nil
	}
	// Multi-row VALUES keeps round-trips down; 2000 rows per statement.
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, t := range ticks[start:end] {
			if t == nil || t.ItemID <= 0 || t.TS.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, t.TS, uint32(t.ItemID), t.Bid, t.Ask)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, item_id, bid, ask) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse tick insert error",
					applogger.String("table", s.table),
					applogger.Int("rows", len(values)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("store ticks: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseHistory) DailyBars(ctx context.Context, itemID int, from, to time.Time) ([]models.DailyBar, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT
            toDate(ts)       AS day,
            max(ask)         AS high,
            min(bid)         AS low,
            avg(ask)         AS avg_high,
            avg(bid)         AS avg_low,
            count()          AS ticks
        FROM %s
        WHERE item_id = ? AND ts >= ? AND ts <= ?
        GROUP BY day
        ORDER BY day ASC
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, uint32(itemID), from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse daily_bars query error",
				applogger.String("table", s.table),
				applogger.Int("item_id", itemID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("daily bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyBar, 0, 32)
	for rows.Next() {
		var b models.DailyBar
		if err := rows.Scan(&b.Date, &b.High, &b.Low, &b.AvgHigh, &b.AvgLow, &b.Count); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.ItemID = itemID
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse daily_bars ok",
			applogger.Int("item_id", itemID),
			applogger.Int("days", len(out)),
			applogger.Duration("duration", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseHistory) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseHistory) Close() error {
	return nil // pool owned by pkg client
}
