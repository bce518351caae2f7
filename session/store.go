package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"
	"go.uber.org/zap"

	"github.com/lvillar/docforge"
)

// ErrSessionNotFound is returned when no live session has the given id.
var ErrSessionNotFound = errors.New("session: not found")

// Gauge receives the number of live sessions after every change.
type Gauge interface {
	SetSessions(n int)
}

// Store keeps the live sessions in memory and expires idle ones.
type Store struct {
	db     *memdb.MemDB
	ttl    time.Duration
	gauge  Gauge
	logger *zap.Logger
	opts   []Option
}

// NewStore creates a store whose sessions expire after ttl without changes.
// opts are applied to every session the store creates. gauge may be nil.
func NewStore(ttl time.Duration, gauge Gauge, logger *zap.Logger, opts ...Option) (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     db,
		ttl:    ttl,
		gauge:  gauge,
		logger: logger.With(zap.String("service", "session-store")),
		opts:   opts,
	}, nil
}

// Create starts a new session. opts are applied after the store's own.
func (s *Store) Create(opts ...Option) (*Session, error) {
	all := make([]Option, 0, len(s.opts)+len(opts))
	all = append(all, s.opts...)
	all = append(all, opts...)
	sess := New(all...)
	sess.onChange = s.touch

	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tblSessions, "id", sess.ID())
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", sess.ID(), err)
	}
	if existing != nil {
		return nil, fmt.Errorf("create session %s: %w", sess.ID(), ErrDuplicateSession)
	}
	if err := txn.Insert(tblSessions, &entry{
		ID:        sess.ID(),
		UpdatedAt: sess.UpdatedAt(),
		session:   sess,
	}); err != nil {
		return nil, fmt.Errorf("insert session %s: %w", sess.ID(), err)
	}
	txn.Commit()

	s.logger.Info("session created", zap.String("session", sess.ID()))
	s.report()
	return sess, nil
}

// ErrDuplicateSession is returned by Create when the id is already in use.
var ErrDuplicateSession = errors.New("session: duplicate id")

// touch records a change to a session. Sessions removed in the meantime stay
// removed, and a change older than the recorded one is dropped.
func (s *Store) touch(id string, t docforge.DocumentType, at time.Time) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", id)
	if err != nil || raw == nil {
		return
	}
	old := raw.(*entry)
	if at.Before(old.UpdatedAt) {
		return
	}
	if err := txn.Insert(tblSessions, &entry{
		ID:        id,
		Type:      string(t),
		UpdatedAt: at,
		session:   old.session,
	}); err != nil {
		s.logger.Warn("session index update failed", zap.String("session", id), zap.Error(err))
		return
	}
	txn.Commit()
}

// Get returns the session with the given id.
func (s *Store) Get(id string) (*Session, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return raw.(*entry).session, nil
}

// List returns the live sessions ordered by id. A non-empty t restricts the
// result to sessions of that document type.
func (s *Store) List(t docforge.DocumentType) ([]*Session, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	var (
		iter memdb.ResultIterator
		err  error
	)
	if t == "" {
		iter, err = txn.Get(tblSessions, "id")
	} else {
		iter, err = txn.Get(tblSessions, "type", string(t))
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []*Session
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		sessions = append(sessions, raw.(*entry).session)
	}
	return sessions, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", id)
	if err != nil {
		return fmt.Errorf("find session %s: %w", id, err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	if err := txn.Delete(tblSessions, raw); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	txn.Commit()

	s.logger.Info("session deleted", zap.String("session", id))
	s.report()
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	txn := s.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblSessions, "id")
	if err != nil {
		return 0
	}
	n := 0
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		n++
	}
	return n
}

// Sweep removes every session whose last change is older than the store's
// TTL at now, and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	txn := s.db.Txn(true)
	defer txn.Abort()

	iter, err := txn.Get(tblSessions, "id")
	if err != nil {
		s.logger.Error("session sweep failed", zap.Error(err))
		return 0
	}
	var expired []*entry
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		e := raw.(*entry)
		if now.Sub(e.UpdatedAt) > s.ttl {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		if err := txn.Delete(tblSessions, e); err != nil {
			s.logger.Error("session sweep failed", zap.String("session", e.ID), zap.Error(err))
			return 0
		}
	}
	txn.Commit()

	if len(expired) > 0 {
		s.logger.Info("expired sessions removed", zap.Int("count", len(expired)))
		s.report()
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

func (s *Store) report() {
	if s.gauge != nil {
		s.gauge.SetSessions(s.Len())
	}
}
