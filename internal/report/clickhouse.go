package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/projectyurei/corpus-cleaner-cli/internal/errhandling"
	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Default ClickHouse settings.
const (
	DefaultClickHouseDatabase = "default"
	DefaultClickHouseTable    = "corpus_file_outcomes"
	DefaultDialTimeout        = 5 * time.Second
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClickHouseConfig configures the ClickHouse reporter.
type ClickHouseConfig struct {
	Addr        []string
	Database    string
	Username    string
	Password    string
	Table       string
	DialTimeout time.Duration
	Retry       errhandling.RetryConfig
}

func (c *ClickHouseConfig) setDefaults() {
	if c.Database == "" {
		c.Database = DefaultClickHouseDatabase
	}
	if c.Table == "" {
		c.Table = DefaultClickHouseTable
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.Retry == (errhandling.RetryConfig{}) {
		c.Retry = errhandling.DefaultRetryConfig()
	}
}

// Validate checks the configuration after defaults are applied.
func (c ClickHouseConfig) Validate() error {
	c.setDefaults()
	if len(c.Addr) == 0 {
		return errors.New("clickhouse: at least one address is required")
	}
	if !identPattern.MatchString(c.Database) {
		return fmt.Errorf("clickhouse: invalid database name %q", c.Database)
	}
	if !identPattern.MatchString(c.Table) {
		return fmt.Errorf("clickhouse: invalid table name %q", c.Table)
	}
	return c.Retry.Validate()
}

// outcomeRow is one row of the outcomes table.
type outcomeRow struct {
	RunID           string
	RunStatus       string
	Input           string
	Output          string
	Admitted        uint64
	LinesRead       uint64
	Blank           uint64
	Malformed       uint64
	Filtered        uint64
	MissingIdentity uint64
	Duplicates      uint64
	DurationMs      float64
	Error           string
	CompletedAt     time.Time
}

// outcomeStore is the storage side of the ClickHouse reporter.
type outcomeStore interface {
	EnsureTable(ctx context.Context) error
	Insert(ctx context.Context, rows []outcomeRow) error
	Close() error
}

// ClickHouse inserts one row per file outcome into a MergeTree table.
// Inserts are retried on network errors.
type ClickHouse struct {
	store outcomeStore
	retry errhandling.RetryConfig
	ready bool
}

// NewClickHouse connects to ClickHouse. The connection is lazy; the table is
// created on the first Report.
func NewClickHouse(cfg ClickHouseConfig) (*ClickHouse, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errhandling.NewConfigurationError("invalid clickhouse settings", err)
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, errhandling.NewConfigurationError("opening clickhouse connection", err)
	}

	return newClickHouse(&clickhouseStore{conn: conn, database: cfg.Database, table: cfg.Table}, cfg.Retry), nil
}

func newClickHouse(store outcomeStore, retry errhandling.RetryConfig) *ClickHouse {
	return &ClickHouse{store: store, retry: retry}
}

// Report implements Reporter.
func (c *ClickHouse) Report(ctx context.Context, result *corpus.RunResult) error {
	if result == nil {
		return errors.New("run result is nil")
	}
	rows := outcomeRows(result)
	if len(rows) == 0 {
		return nil
	}

	executor := errhandling.NewRetryExecutor(c.retry)
	executor.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("clickhouse insert failed, retrying",
			"run_id", result.RunID,
			"attempt", attempt+1,
			"delay", delay,
			"error", err.Error(),
		)
	}

	err := executor.Execute(ctx, func(ctx context.Context) error {
		if !c.ready {
			if err := c.store.EnsureTable(ctx); err != nil {
				return errhandling.NewNetworkError("creating outcomes table", err)
			}
			c.ready = true
		}
		if err := c.store.Insert(ctx, rows); err != nil {
			return errhandling.NewNetworkError("inserting outcomes", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clickhouse report: %w", err)
	}

	logger.Debug("run report sent to clickhouse",
		"run_id", result.RunID,
		"rows", len(rows),
		"attempts", executor.GetRetryInfo().TotalAttempts,
	)
	return nil
}

// Close implements Reporter.
func (c *ClickHouse) Close() error {
	return c.store.Close()
}

func outcomeRows(result *corpus.RunResult) []outcomeRow {
	rows := make([]outcomeRow, 0, len(result.Files))
	for _, o := range result.Files {
		rows = append(rows, outcomeRow{
			RunID:           result.RunID,
			RunStatus:       result.Status,
			Input:           o.Input,
			Output:          o.Output,
			Admitted:        uint64(o.Admitted),
			LinesRead:       uint64(o.LinesRead),
			Blank:           uint64(o.Blank),
			Malformed:       uint64(o.Malformed),
			Filtered:        uint64(o.Filtered),
			MissingIdentity: uint64(o.MissingIdentity),
			Duplicates:      uint64(o.Duplicates),
			DurationMs:      float64(o.Duration) / float64(time.Millisecond),
			Error:           o.Error,
			CompletedAt:     result.CompletedAt,
		})
	}
	return rows
}

type clickhouseStore struct {
	conn     clickhouse.Conn
	database string
	table    string
}

func (s *clickhouseStore) EnsureTable(ctx context.Context) error {
	return s.conn.Exec(ctx, createTableSQL(s.database, s.table))
}

// createTableSQL keys rows on (run_id, input). A retried insert whose first
// attempt was committed without an ack writes the same rows again, and
// ReplacingMergeTree collapses them on merge; read with FINAL for exact
// counts before that.
func createTableSQL(database, table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			run_id String,
			run_status LowCardinality(String),
			input String,
			output String,
			admitted UInt64,
			lines_read UInt64,
			blank UInt64,
			malformed UInt64,
			filtered UInt64,
			missing_identity UInt64,
			duplicates UInt64,
			duration_ms Float64,
			error String,
			completed_at DateTime
		) ENGINE = ReplacingMergeTree(completed_at)
		ORDER BY (run_id, input)
	`, database, table)
}

func (s *clickhouseStore) Insert(ctx context.Context, rows []outcomeRow) error {
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s.%s
		(run_id, run_status, input, output, admitted, lines_read, blank, malformed,
		 filtered, missing_identity, duplicates, duration_ms, error, completed_at)
	`, s.database, s.table))
	if err != nil {
		return fmt.Errorf("preparing batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(
			r.RunID,
			r.RunStatus,
			r.Input,
			r.Output,
			r.Admitted,
			r.LinesRead,
			r.Blank,
			r.Malformed,
			r.Filtered,
			r.MissingIdentity,
			r.Duplicates,
			r.DurationMs,
			r.Error,
			r.CompletedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("appending row for %s: %w", r.Input, err)
		}
	}
	return batch.Send()
}

func (s *clickhouseStore) Close() error {
	return s.conn.Close()
}
