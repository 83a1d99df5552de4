package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.AnalysisRepository using SQLite.
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
		dbPath = "./data/dashboard.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serialises writers; SQLite would otherwise return SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		bias TEXT NOT NULL,
		confidence REAL NOT NULL,
		summary TEXT NOT NULL,
		key_levels TEXT NOT NULL, -- JSON
		risks TEXT NOT NULL,      -- JSON array
		source TEXT NOT NULL,
		indicators TEXT NOT NULL, -- JSON IndicatorSet snapshot
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_symbol_created ON analyses (symbol, created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_symbol_interval_created ON analyses (symbol, interval, created_at);
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

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrDBConnection, err)
	}
	return nil
}

const selectAnalysis = `
	SELECT id, symbol, interval, bias, confidence, summary, key_levels, risks, source, indicators, created_at
	FROM analyses`

// Save stores a new analysis and returns its assigned ID.
func (r *Repository) Save(ctx context.Context, a *domain.Analysis) (int64, error) {
	const query = `
	INSERT INTO analyses (symbol, interval, bias, confidence, summary, key_levels, risks, source, indicators, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()

	keyLevels, err := json.Marshal(a.KeyLevels)
	if err != nil {
		return 0, fmt.Errorf("failed to encode key levels: %w", err)
	}
	risks := a.Risks
	if risks == nil {
		risks = []string{}
	}
	risksJSON, err := json.Marshal(risks)
	if err != nil {
		return 0, fmt.Errorf("failed to encode risks: %w", err)
	}
	indicators, err := json.Marshal(a.Indicators)
	if err != nil {
		return 0, fmt.Errorf("failed to encode indicator snapshot: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		a.Symbol, a.Interval, string(a.Bias), a.Confidence, a.Summary,
		string(keyLevels), string(risksJSON), string(a.Source), string(indicators), a.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis for symbol %s: %w: %w", a.Symbol, ports.ErrQueryFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for analysis %s: %w", a.Symbol, err)
	}
	a.ID = id
	r.logger.Debug(ctx, "Analysis saved", map[string]interface{}{"analysisID": id, "symbol": a.Symbol, "source": a.Source})
	return id, nil
}

// FindByID retrieves an analysis by its unique ID. Returns nil, nil if not found.
func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx, selectAnalysis+` WHERE id = ?`, id)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Analysis not found by ID", map[string]interface{}{"analysisID": id})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query analysis by ID %d: %w: %w", id, ports.ErrQueryFailed, err)
	}
	return a, nil
}

// FindBySymbol retrieves the most recent analyses for a symbol, newest first, up to a limit.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectAnalysis+` WHERE symbol = ? ORDER BY created_at DESC, id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	analyses := make([]*domain.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis during FindBySymbol: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis rows: %w", err)
	}
	return analyses, nil
}

// FindLatest retrieves the newest analysis for a symbol/interval pair. Returns nil, nil if none exists.
func (r *Repository) FindLatest(ctx context.Context, symbol, interval string) (*domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx, selectAnalysis+` WHERE symbol = ? AND interval = ? ORDER BY created_at DESC, id DESC LIMIT 1`, symbol, interval)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest analysis for %s/%s: %w: %w", symbol, interval, ports.ErrQueryFailed, err)
	}
	return a, nil
}

// CountSince counts the analyses created after the given time.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM analyses WHERE created_at > ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses since %s: %w: %w", since.Format(time.RFC3339), ports.ErrQueryFailed, err)
	}
	return count, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanAnalysis scans a row into a domain.Analysis struct.
func scanAnalysis(s scanner) (*domain.Analysis, error) {
	a := &domain.Analysis{}
	var bias, source, keyLevels, risks, indicators string
	err := s.Scan(&a.ID, &a.Symbol, &a.Interval, &bias, &a.Confidence, &a.Summary,
		&keyLevels, &risks, &source, &indicators, &a.CreatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	a.Bias = domain.ParseSignal(bias)
	a.Source = domain.AnalysisSource(source)

	if err := json.Unmarshal([]byte(keyLevels), &a.KeyLevels); err != nil {
		return nil, fmt.Errorf("decoding key levels of analysis %d: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(risks), &a.Risks); err != nil {
		return nil, fmt.Errorf("decoding risks of analysis %d: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(indicators), &a.Indicators); err != nil {
		return nil, fmt.Errorf("decoding indicators of analysis %d: %w", a.ID, err)
	}
	return a, nil
}
