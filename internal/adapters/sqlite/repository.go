package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoTradeDesk/internal/domain"
	"cryptoTradeDesk/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.TradeRepository interface using SQLite.
// Only the persisted Trade fields live here; the transient enrichment
// fields are never written.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trade_desk.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency under the HTTP server
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from
	// limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: a proper migration tool is recommended for production.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL DEFAULT 0,
		take_profit REAL DEFAULT 0,
		status TEXT NOT NULL,
		open_time TIMESTAMP NOT NULL,
		close_time TIMESTAMP DEFAULT NULL,
		realized_pnl REAL DEFAULT 0,
		fees REAL DEFAULT 0,
		is_paper_trade INTEGER NOT NULL DEFAULT 0,
		close_reason TEXT DEFAULT NULL,
		stop_loss_order_id INTEGER DEFAULT NULL,
		take_profit_order_id INTEGER DEFAULT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_status ON trades (symbol, status);
	CREATE INDEX IF NOT EXISTS idx_trades_status_open_time ON trades (status, open_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Create saves a new trade and returns its assigned ID.
func (r *Repository) Create(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (symbol, side, quantity, entry_price, stop_loss, take_profit,
	                    status, open_time, realized_pnl, fees, is_paper_trade,
	                    stop_loss_order_id, take_profit_order_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, trade.Side, trade.Quantity, trade.EntryPrice, trade.StopLoss, trade.TakeProfit,
		trade.Status, trade.OpenTime, trade.RealizedPnL, trade.Fees, trade.IsPaperTrade,
		nullInt64(trade.StopLossOrderID), nullInt64(trade.TakeProfitOrderID))
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for symbol %s: %w", trade.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", trade.Symbol, err)
	}
	trade.ID = id // Update the domain object with the ID
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": id, "symbol": trade.Symbol})
	return id, nil
}

// Update modifies an existing trade based on its ID.
func (r *Repository) Update(ctx context.Context, trade *domain.Trade) error {
	const query = `
	UPDATE trades
	SET symbol = ?, side = ?, quantity = ?, entry_price = ?, stop_loss = ?, take_profit = ?,
	    status = ?, open_time = ?, close_time = ?, realized_pnl = ?, fees = ?,
	    is_paper_trade = ?, close_reason = ?, stop_loss_order_id = ?, take_profit_order_id = ?
	WHERE id = ?`

	var closeTime sql.NullTime
	if !trade.CloseTime.IsZero() {
		closeTime = sql.NullTime{Time: trade.CloseTime, Valid: true}
	}
	var closeReason sql.NullString
	if trade.CloseReason != "" {
		closeReason = sql.NullString{String: string(trade.CloseReason), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, trade.Side, trade.Quantity, trade.EntryPrice, trade.StopLoss, trade.TakeProfit,
		trade.Status, trade.OpenTime, closeTime, trade.RealizedPnL, trade.Fees,
		trade.IsPaperTrade, closeReason, nullInt64(trade.StopLossOrderID), nullInt64(trade.TakeProfitOrderID),
		trade.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade ID %d: %w", trade.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update trade ID %d: %w", trade.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade ID %d not found for update: %w", trade.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade updated", map[string]interface{}{"tradeID": trade.ID, "status": trade.Status})
	return nil
}

const selectColumns = `
	SELECT id, symbol, side, quantity, entry_price, COALESCE(stop_loss, 0), COALESCE(take_profit, 0),
	       status, open_time, close_time, COALESCE(realized_pnl, 0), COALESCE(fees, 0),
	       is_paper_trade, close_reason, stop_loss_order_id, take_profit_order_id
	FROM trades`

// FindByID retrieves a trade by its unique ID. Returns (nil, nil) when
// no trade exists with that ID.
func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.Trade, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	trade, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Trade not found by ID", map[string]interface{}{"tradeID": id})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query trade by ID %d: %w", id, err)
	}
	return trade, nil
}

// FindAll retrieves all trades, ordered by open time descending.
func (r *Repository) FindAll(ctx context.Context) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY open_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all trades: %w", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// FindByStatus retrieves all trades with the given status, ordered by
// open time descending.
func (r *Repository) FindByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE status = ? ORDER BY open_time DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades by status %s: %w", status, err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// Delete removes a trade by ID. Open trades still hold exposure and are
// undeletable.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	trade, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if trade == nil {
		return fmt.Errorf("trade ID %d: %w", id, ports.ErrNotFound)
	}
	if !trade.IsDeletable() {
		return fmt.Errorf("trade ID %d: %w", id, ports.ErrTradeActive)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade ID %d: %w", id, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("trade ID %d: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade deleted", map[string]interface{}{"tradeID": id})
	return nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var side, status string
	var closeTime sql.NullTime
	var closeReason sql.NullString
	var slOrderID, tpOrderID sql.NullInt64

	err := s.Scan(
		&t.ID, &t.Symbol, &side, &t.Quantity, &t.EntryPrice, &t.StopLoss, &t.TakeProfit,
		&status, &t.OpenTime, &closeTime, &t.RealizedPnL, &t.Fees,
		&t.IsPaperTrade, &closeReason, &slOrderID, &tpOrderID)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}

	t.Side = domain.OrderSide(side)
	t.Status = domain.TradeStatus(status)
	if closeTime.Valid {
		t.CloseTime = closeTime.Time
	}
	if closeReason.Valid {
		t.CloseReason = domain.CloseReason(closeReason.String)
	}
	if slOrderID.Valid {
		t.StopLossOrderID = &slOrderID.Int64
	}
	if tpOrderID.Valid {
		t.TakeProfitOrderID = &tpOrderID.Int64
	}
	return t, nil
}

func collectTrades(rows *sql.Rows) ([]*domain.Trade, error) {
	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}
