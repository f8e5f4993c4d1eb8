package history

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/querylabs/querybench/pkg/bench"
	"github.com/querylabs/querybench/pkg/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists bench results across runs for trend tracking.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	SaveResult(ctx context.Context, record *ResultRecord) error
	ListRuns(ctx context.Context) ([]RunSummary, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]ResultRecord, error)
}

// ResultFilter narrows a result listing. Zero-valued fields are ignored.
type ResultFilter struct {
	BenchRunID string
	CasesHash  string
	CaseID     string
	Limit      int
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a history Store backed by the configured database driver.
func NewStore(log logrus.FieldLogger, cfg *config.DatabaseConfig) Store {
	return &store{
		log: log.WithField("component", "history"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	switch s.cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported history database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(&ResultRecord{}); err != nil {
		return fmt.Errorf("running history migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Debug("History database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// SaveResult persists one per-case result.
func (s *store) SaveResult(ctx context.Context, record *ResultRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("saving result: %w", err)
	}

	return nil
}

// ListRuns returns one summary per bench run, most recent first.
func (s *store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	var records []ResultRecord

	err := s.db.WithContext(ctx).
		Select("bench_run_id, cases_hash, server, created_at").
		Order("created_at desc, id desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]RunSummary, 0, len(records))
	index := make(map[string]int, len(records))

	for _, rec := range records {
		i, seen := index[rec.BenchRunID]
		if !seen {
			index[rec.BenchRunID] = len(runs)
			runs = append(runs, RunSummary{
				BenchRunID: rec.BenchRunID,
				CasesHash:  rec.CasesHash,
				Server:     rec.Server,
				Cases:      1,
				CreatedAt:  rec.CreatedAt,
			})

			continue
		}

		runs[i].Cases++
	}

	return runs, nil
}

// ListResults returns results matching the filter, most recent first.
func (s *store) ListResults(
	ctx context.Context, filter ResultFilter,
) ([]ResultRecord, error) {
	q := s.db.WithContext(ctx).Model(&ResultRecord{})

	if filter.BenchRunID != "" {
		q = q.Where("bench_run_id = ?", filter.BenchRunID)
	}

	if filter.CasesHash != "" {
		q = q.Where("cases_hash = ?", filter.CasesHash)
	}

	if filter.CaseID != "" {
		q = q.Where("case_id = ?", filter.CaseID)
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var records []ResultRecord
	if err := q.Order("created_at desc, id desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	return records, nil
}

// Recorder adapts the store to the runner's reporter contract so every
// streamed result lands in the history database. Write failures are logged
// and swallowed; history is a best-effort sink.
type Recorder struct {
	log   logrus.FieldLogger
	store Store
}

// Compile-time interface check.
var _ bench.Reporter = (*Recorder)(nil)

// NewRecorder creates a reporter writing to the given store.
func NewRecorder(log logrus.FieldLogger, store Store) *Recorder {
	return &Recorder{
		log:   log.WithField("component", "history-recorder"),
		store: store,
	}
}

// Report persists one result.
func (r *Recorder) Report(result *bench.Result) error {
	record := &ResultRecord{
		BenchRunID:                       result.BenchRunID,
		CasesHash:                        result.CasesHash,
		CaseID:                           result.CaseID,
		Server:                           result.Server,
		Query:                            result.Query,
		SignalExpression:                 result.SignalExpression,
		Description:                      result.Description,
		Start:                            result.Start,
		End:                              result.End,
		Runs:                             result.Runs,
		MinElapsed:                       result.MinElapsed,
		MaxElapsed:                       result.MaxElapsed,
		MeanElapsed:                      result.MeanElapsed,
		StandardDeviationElapsed:         result.StandardDeviationElapsed,
		RelativeStandardDeviationElapsed: result.RelativeStandardDeviationElapsed,
	}

	if result.LastResult != nil {
		record.LastResult = fmt.Sprint(result.LastResult)
	}

	if err := r.store.SaveResult(context.Background(), record); err != nil {
		r.log.WithError(err).Warn("Recording result to history failed")
	}

	return nil
}

// Close is a no-op; the store lifecycle is owned by the caller.
func (r *Recorder) Close() error {
	return nil
}
