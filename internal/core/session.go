package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// IngestResult describes one finished ingestion, for metrics.
type IngestResult struct {
	SessionID string
	FileName  string
	Status    Status
	Failure   Failure
	Rows      int
	Duration  time.Duration
}

// IngestObserver is notified after every ingestion, stale ones included.
type IngestObserver interface {
	ObserveIngest(IngestResult)
}

// SessionConfig holds what a Session needs to parse and paginate.
type SessionConfig struct {
	Parse    ParseOptions
	PageSize int

	// Limiter bounds concurrent parses across sessions; nil means unbounded.
	Limiter *ParseLimiter

	// Observer may be nil.
	Observer IngestObserver
}

// Session owns the State of one user's conversion page.
// All access goes through the methods; readers receive snapshots.
type Session struct {
	id  string
	cfg SessionConfig

	mu    sync.RWMutex
	state State
}

// NewSession creates an idle session.
func NewSession(id string, cfg SessionConfig) *Session {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Session{id: id, cfg: cfg}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// PageSize returns the configured preview page size.
func (s *Session) PageSize() int { return s.cfg.PageSize }

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetPage moves the preview page and returns the resulting state.
func (s *Session) SetPage(number int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.SetPage(number, s.cfg.PageSize)
	return s.state
}

// Ingest is the single entry point for a new file, however it was chosen.
//
// The new ingestion immediately supersedes any earlier one; if an earlier
// parse finishes later its result is discarded. The returned State is the
// session state right after this ingestion was applied, and the error is
// the classified ingestion error (ErrEmptyResult included). Failures never
// leave a partially populated dataset behind.
func (s *Session) Ingest(ctx context.Context, src Source) (State, error) {
	name := ""
	if src != nil {
		name = src.Name()
	}

	s.mu.Lock()
	s.state = s.state.Begin(name)
	gen := s.state.Generation
	s.mu.Unlock()

	start := time.Now()
	ds, stats, err := s.parse(ctx, src)
	elapsed := time.Since(start)

	s.mu.Lock()
	if err != nil && !errors.Is(err, ErrEmptyResult) {
		s.state = s.state.Fail(gen, err)
	} else {
		s.state = s.state.Succeed(gen, ds, stats, s.cfg.PageSize)
	}
	snap := s.state
	s.mu.Unlock()

	logger := slog.Default().With("session_id", s.id, "file", name, "generation", gen)
	switch {
	case snap.Generation != gen:
		logger.Debug("ingest superseded", "current_generation", snap.Generation)
	case err != nil:
		logger.Info("ingest failed", "failure", string(Classify(err)), "error", err, "duration_ms", elapsed.Milliseconds())
	default:
		logger.Info("ingest completed",
			"rows", ds.Len(),
			"columns", len(ds.Columns()),
			"padded_rows", stats.PaddedRows,
			"truncated_rows", stats.TruncatedRows,
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	if s.cfg.Observer != nil {
		res := IngestResult{
			SessionID: s.id,
			FileName:  name,
			Status:    StatusFailed,
			Failure:   Classify(err),
			Rows:      ds.Len(),
			Duration:  elapsed,
		}
		if err == nil {
			res.Status = StatusParsed
		} else if errors.Is(err, ErrEmptyResult) {
			res.Status = StatusEmpty
		}
		s.cfg.Observer.ObserveIngest(res)
	}

	return snap, err
}

func (s *Session) parse(ctx context.Context, src Source) (*Dataset, ParseStats, error) {
	// Reject bad files before queueing for a parse slot.
	if err := ValidateSource(src); err != nil {
		return nil, ParseStats{}, err
	}

	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Acquire(ctx); err != nil {
			return nil, ParseStats{}, err
		}
		defer s.cfg.Limiter.Release()
	}

	return ParseSource(ctx, src, s.cfg.Parse)
}
