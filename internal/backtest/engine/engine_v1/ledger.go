package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-analytics/internal/logger"
	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Ledger mirrors a run's emitted trades into an in-memory DuckDB database so
// aggregate breakdowns can be queried with SQL and the run's ledger can be
// exported to Parquet.
type Ledger struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// ExitBreakdown is one row of a grouped ledger aggregate.
type ExitBreakdown struct {
	Key      string
	Count    int
	TotalPnL float64
	TotalFee float64
}

// NewLedger opens an in-memory DuckDB ledger.
func NewLedger(log *logger.Logger) (*Ledger, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("NewLedger: failed to open database: %w", err)
	}

	ledger := &Ledger{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := ledger.initialize(); err != nil {
		return nil, err
	}

	return ledger, nil
}

func (l *Ledger) initialize() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			strategy_name TEXT,
			side TEXT,
			entry_index INTEGER,
			entry_time TIMESTAMP,
			entry_price DOUBLE,
			quantity DOUBLE,
			exit_index INTEGER,
			exit_time TIMESTAMP,
			exit_price DOUBLE,
			pnl DOUBLE,
			pnl_percent DOUBLE,
			fee DOUBLE,
			exit_reason TEXT,
			dca_group_id TEXT,
			exit_zone_name TEXT,
			mfe_percent DOUBLE,
			mae_percent DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}

	return nil
}

// Append inserts emitted trades into the ledger.
func (l *Ledger) Append(trades ...types.Trade) error {
	for _, trade := range trades {
		insert := l.sq.
			Insert("trades").
			Columns("id", "strategy_name", "side", "entry_index", "entry_time", "entry_price",
				"quantity", "exit_index", "exit_time", "exit_price", "pnl", "pnl_percent",
				"fee", "exit_reason", "dca_group_id", "exit_zone_name", "mfe_percent", "mae_percent").
			Values(trade.ID, trade.StrategyName, string(trade.Side), trade.EntryIndex, trade.EntryTime, trade.EntryPrice,
				trade.Quantity, trade.ExitIndex, trade.ExitTime, trade.ExitPrice, trade.PnL, trade.PnLPercent,
				trade.Fee, string(trade.ExitReason), trade.DCAGroupID, trade.ExitZoneName, trade.MFEPercent, trade.MAEPercent).
			RunWith(l.db)

		if _, err := insert.Exec(); err != nil {
			return fmt.Errorf("Append: failed to insert trade %s: %w", trade.ID, err)
		}
	}

	return nil
}

// Count returns the number of trades in the ledger.
func (l *Ledger) Count() (int, error) {
	var count int

	query := l.sq.Select("COUNT(*)").From("trades").RunWith(l.db)
	if err := query.QueryRow().Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}

	return count, nil
}

// BreakdownByZone aggregates closed trades per exit zone.
func (l *Ledger) BreakdownByZone() ([]ExitBreakdown, error) {
	return l.breakdown("exit_zone_name")
}

// BreakdownByReason aggregates closed trades per exit reason.
func (l *Ledger) BreakdownByReason() ([]ExitBreakdown, error) {
	return l.breakdown("exit_reason")
}

func (l *Ledger) breakdown(column string) ([]ExitBreakdown, error) {
	query := l.sq.
		Select(column, "COUNT(*)", "COALESCE(SUM(pnl), 0)", "COALESCE(SUM(fee), 0)").
		From("trades").
		Where(squirrel.Gt{"quantity": 0}).
		GroupBy(column).
		OrderBy(column).
		RunWith(l.db)

	rows, err := query.Query()
	if err != nil {
		return nil, fmt.Errorf("breakdown: %w", err)
	}
	defer rows.Close()

	var breakdowns []ExitBreakdown

	for rows.Next() {
		var b ExitBreakdown
		if err := rows.Scan(&b.Key, &b.Count, &b.TotalPnL, &b.TotalFee); err != nil {
			return nil, fmt.Errorf("breakdown: failed to scan row: %w", err)
		}

		breakdowns = append(breakdowns, b)
	}

	return breakdowns, rows.Err()
}

// TotalFees sums the fees across the whole ledger.
func (l *Ledger) TotalFees() (float64, error) {
	var fees float64

	query := l.sq.Select("COALESCE(SUM(fee), 0)").From("trades").RunWith(l.db)
	if err := query.QueryRow().Scan(&fees); err != nil {
		return 0, fmt.Errorf("TotalFees: %w", err)
	}

	return fees, nil
}

// Write exports the ledger to a Parquet file under path.
func (l *Ledger) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("Write: failed to create directory: %w", err)
	}

	// raw SQL, Squirrel doesn't support COPY
	tradesPath := filepath.Join(path, "trades.parquet")
	if _, err := l.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return fmt.Errorf("Write: failed to export trades to Parquet: %w", err)
	}

	l.log.Info("exported trade ledger",
		zap.String("trades", tradesPath),
	)

	return nil
}

// Cleanup drops and recreates the trades table for the next run.
func (l *Ledger) Cleanup() error {
	if _, err := l.db.Exec(`DROP TABLE IF EXISTS trades`); err != nil {
		return fmt.Errorf("Cleanup: failed to drop tables: %w", err)
	}

	return l.initialize()
}

// Close releases the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
