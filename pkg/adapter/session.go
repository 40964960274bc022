package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/google/uuid"
)

// State is the lifecycle position of a Session.
type State int

// Session states. A session moves created -> open -> committed|rolled-back -> released.
const (
	StateCreated State = iota
	StateOpen
	StateCommitted
	StateRolledBack
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Tx is the backend-native half of a session: one dedicated connection
// and the statements that control its transaction.
type Tx interface {
	Begin(ctx context.Context) error
	// Query runs canonical SQL on the dedicated connection.
	Query(ctx context.Context, sql string, params ...any) (core.Result, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// Release returns the connection. It is called exactly once.
	Release()
}

// Session is a transaction bound to one connection.
//
// Commit and Rollback are no-ops unless the session is open, so at most one
// of them reaches the backend. Release is idempotent; releasing a session
// that is still open rolls it back first.
type Session struct {
	mu     sync.Mutex
	id     string
	kind   core.Kind
	state  State
	tx     Tx
	logger *slog.Logger
}

// NewSession wraps a native transaction handle. The session starts in the
// created state; call Begin to open it.
func NewSession(kind core.Kind, tx Tx, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		kind:   kind,
		state:  StateCreated,
		tx:     tx,
		logger: logger.With("session", id, "backend", kind.String()),
	}
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// Kind returns the backend the session runs on.
func (s *Session) Kind() core.Kind { return s.kind }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin opens the transaction.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return fmt.Errorf("begin: %w (state %s)", core.ErrSessionNotOpen, s.state)
	}
	if err := s.tx.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.state = StateOpen
	s.logger.Debug("transaction started")
	return nil
}

// Query runs canonical SQL inside the open transaction.
func (s *Session) Query(ctx context.Context, sql string, params ...any) (core.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return nil, fmt.Errorf("%w (state %s)", core.ErrSessionNotOpen, s.state)
	}
	return s.tx.Query(ctx, sql, params...)
}

// Commit commits the transaction. It does nothing unless the session is open.
// A failed commit is followed by a rollback and leaves the session rolled back.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		s.logger.Debug("commit skipped", "state", s.state.String())
		return nil
	}
	if err := s.tx.Commit(ctx); err != nil {
		if rbErr := s.tx.Rollback(ctx); rbErr != nil {
			s.logger.Debug("rollback after failed commit", "error", rbErr)
		}
		s.state = StateRolledBack
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.state = StateCommitted
	s.logger.Debug("transaction committed")
	return nil
}

// Rollback aborts the transaction. It does nothing unless the session is open.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbackLocked(ctx)
}

func (s *Session) rollbackLocked(ctx context.Context) error {
	if s.state != StateOpen {
		s.logger.Debug("rollback skipped", "state", s.state.String())
		return nil
	}
	s.state = StateRolledBack
	if err := s.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	s.logger.Debug("transaction rolled back")
	return nil
}

// Release returns the connection. Calling it more than once is harmless.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return
	}
	if s.state == StateOpen {
		s.logger.Warn("releasing open transaction, rolling back")
		if err := s.rollbackLocked(context.Background()); err != nil {
			s.logger.Error("rollback on release failed", "error", err)
		}
	}
	s.tx.Release()
	s.state = StateReleased
	s.logger.Debug("session released")
}

// WithSession opens a session on a, runs fn inside it and commits when fn
// returns nil. Any error or panic rolls back. The session is always released.
func WithSession(ctx context.Context, a Adapter, fn func(*Session) error) (err error) {
	s, err := a.BeginSession(ctx)
	if err != nil {
		return err
	}
	defer s.Release()

	defer func() {
		if p := recover(); p != nil {
			_ = s.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(s); err != nil {
		if rbErr := s.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return s.Commit(ctx)
}
