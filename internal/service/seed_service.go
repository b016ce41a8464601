package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"barrel/internal/barrel"
	"barrel/internal/dbclient"
	"barrel/internal/domain"
	"barrel/internal/plan"
	"barrel/internal/secret"
)

// ─────────────────────────────────────────────────────────────
// Seed Service — loads plans, seeds targets, records history
// ─────────────────────────────────────────────────────────────

// Run triggers recorded in domain.RunLog.Trigger.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"
	TriggerFileWatch = "file_watch"
	TriggerMCP       = "mcp"
)

// ErrAlreadyRunning is returned when a plan is seeded while a run of the
// same plan is still in flight.
var ErrAlreadyRunning = errors.New("plan is already running")

// StoreOpener opens the insert backend for a connection.
type StoreOpener func(conn *domain.DatabaseConnection, password string) (dbclient.Store, error)

// SeedService runs seed plans. runs and secrets may be nil.
type SeedService struct {
	runs      domain.RunLogStore
	secrets   secret.SecretStore
	emitter   EventEmitter
	openStore StoreOpener
	logger    *log.Logger
	timeout   time.Duration
	running   runningPlansGuard
}

// Option configures a SeedService.
type Option func(*SeedService)

// WithStoreOpener replaces dbclient.NewStore.
func WithStoreOpener(open StoreOpener) Option {
	return func(s *SeedService) { s.openStore = open }
}

// WithLogger routes engine logs to l.
func WithLogger(l *log.Logger) Option {
	return func(s *SeedService) { s.logger = l }
}

// WithTimeout bounds each run. The default is five minutes.
func WithTimeout(d time.Duration) Option {
	return func(s *SeedService) { s.timeout = d }
}

// NewSeedService creates a SeedService ready for use.
func NewSeedService(runs domain.RunLogStore, secrets secret.SecretStore, emitter EventEmitter, opts ...Option) *SeedService {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	s := &SeedService{
		runs:      runs,
		secrets:   secrets,
		emitter:   emitter,
		openStore: dbclient.NewStore,
		logger:    log.Default(),
		timeout:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunResult is the outcome of one seed run.
type RunResult struct {
	RunID    string               `json:"runId,omitempty"`
	PlanPath string               `json:"planPath"`
	Driver   string               `json:"driver"`
	DryRun   bool                 `json:"dryRun"`
	Insert   *barrel.InsertResult `json:"insert"`
}

// ── Run ────────────────────────────────────────────────────

// Run seeds the plan at planPath. A dry run writes to an in-memory store
// instead of the plan's connection.
func (s *SeedService) Run(ctx context.Context, planPath string, dryRun bool) (*RunResult, error) {
	return s.RunWithTrigger(ctx, planPath, dryRun, TriggerManual)
}

// RunWithTrigger is Run with the trigger recorded in history.
func (s *SeedService) RunWithTrigger(ctx context.Context, planPath string, dryRun bool, trigger string) (*RunResult, error) {
	key := planKey(planPath)
	if !s.running.TryLock(key) {
		return nil, fmt.Errorf("%s: %w", planPath, ErrAlreadyRunning)
	}
	defer s.running.Unlock(key)

	p, err := plan.Load(planPath)
	if err != nil {
		return nil, err
	}

	conn := p.Connection
	if dryRun {
		conn = domain.DatabaseConnection{Driver: domain.DatabaseDriverMemory}
	}

	result := &RunResult{PlanPath: planPath, Driver: string(conn.Driver), DryRun: dryRun}
	runLog := &domain.RunLog{
		PlanPath:  planPath,
		Driver:    string(conn.Driver),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}

	insert, runErr := s.seed(ctx, p, &conn)
	result.Insert = insert

	runLog.FinishedAt = time.Now()
	if insert != nil {
		runLog.Batches = insert.Batches
		runLog.Inserted = insert.Inserted
		runLog.Records = insert.Records
	}
	if runErr != nil {
		runLog.Status = "error"
		runLog.Error = runErr.Error()
	} else {
		runLog.Status = "success"
	}

	if s.runs != nil {
		if err := s.runs.CreateRunLog(runLog); err != nil {
			log.Printf("[SEED] failed to record run of %s: %v", planPath, err)
		} else {
			result.RunID = runLog.ID
		}
	}

	if runErr != nil {
		s.emitter.Emit(ctx, "seed:failed", runLog)
		return result, runErr
	}
	s.emitter.Emit(ctx, "seed:completed", runLog)
	return result, nil
}

func (s *SeedService) seed(ctx context.Context, p *plan.Plan, conn *domain.DatabaseConnection) (*barrel.InsertResult, error) {
	password, err := s.password(conn)
	if err != nil {
		return nil, err
	}

	store, err := s.openStore(conn, password)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conn.Driver, err)
	}
	defer store.Close()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := store.Ping(runCtx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", conn.Driver, err)
	}

	b := barrel.New(store, barrel.WithLogger(s.logger))
	p.Apply(b)
	if _, err := p.Generate(b); err != nil {
		return nil, err
	}
	return b.Insert(runCtx)
}

func (s *SeedService) password(conn *domain.DatabaseConnection) (string, error) {
	if conn.PasswordKey == "" || s.secrets == nil {
		return "", nil
	}
	v, err := s.secrets.Get(conn.PasswordKey)
	if err != nil {
		return "", fmt.Errorf("read password %q: %w", conn.PasswordKey, err)
	}
	return string(v), nil
}

// ── Preview ────────────────────────────────────────────────

// PreviewResult shows what a run would queue and write.
type PreviewResult struct {
	PlanPath string         `json:"planPath"`
	Batches  []PreviewBatch `json:"batches"`
	Tables   []PreviewTable `json:"tables"`
}

// PreviewBatch is one batch in insertion order.
type PreviewBatch struct {
	Schema string `json:"schema"`
	Begin  int    `json:"begin"`
	End    int    `json:"end"`
}

// PreviewTable holds the rows a table would receive, keyed by column.
type PreviewTable struct {
	Name string          `json:"name"`
	Rows []barrel.Record `json:"rows"`
}

// Preview generates the plan against an in-memory store and reports the
// batches and rows, with references resolved.
func (s *SeedService) Preview(ctx context.Context, planPath string) (*PreviewResult, error) {
	p, err := plan.Load(planPath)
	if err != nil {
		return nil, err
	}

	store := dbclient.NewMemoryStore()
	b := barrel.New(store, barrel.WithLogger(s.logger))
	p.Apply(b)
	if _, err := p.Generate(b); err != nil {
		return nil, err
	}

	result := &PreviewResult{PlanPath: planPath}
	for _, bt := range b.Queued() {
		result.Batches = append(result.Batches, PreviewBatch{Schema: bt.Schema, Begin: bt.Begin, End: bt.End})
	}

	if _, err := b.Insert(ctx); err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}

	for _, t := range p.Tables {
		table := t.Table
		if table == "" {
			table = t.Name
		}
		rows := store.Rows(table)
		if len(rows) == 0 {
			continue
		}
		result.Tables = append(result.Tables, PreviewTable{Name: table, Rows: rows})
	}
	return result, nil
}

// ── History ────────────────────────────────────────────────

// History returns the newest runs of planPath, or of every plan when
// planPath is empty.
func (s *SeedService) History(planPath string, limit int) ([]domain.RunLog, error) {
	if s.runs == nil {
		return nil, errors.New("run history is not configured")
	}
	return s.runs.ListRunLogs(planPath, limit)
}

// WaitRunning blocks until all running plans finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *SeedService) WaitRunning(ctx context.Context) {
	s.running.WaitAll(ctx)
}

func planKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
