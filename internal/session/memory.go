package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]domain.Session
	byAccount map[uint]map[string]struct{}
	ttl       time.Duration
	now       func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]domain.Session),
		byAccount: make(map[uint]map[string]struct{}),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, accountID uint, userAgent string) (domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
	if s.byAccount[accountID] == nil {
		s.byAccount[accountID] = make(map[string]struct{})
	}
	s.byAccount[accountID][sess.ID] = struct{}{}

	return sess, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		s.deleteLocked(sess)
		return domain.Session{}, ErrSessionNotFound
	}

	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.deleteLocked(sess)

	return nil
}

func (s *MemoryStore) DeleteAllForAccount(_ context.Context, accountID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.byAccount[accountID] {
		delete(s.sessions, id)
	}
	delete(s.byAccount, accountID)

	return nil
}

func (s *MemoryStore) deleteLocked(sess domain.Session) {
	delete(s.sessions, sess.ID)
	if ids, ok := s.byAccount[sess.AccountID]; ok {
		delete(ids, sess.ID)
		if len(ids) == 0 {
			delete(s.byAccount, sess.AccountID)
		}
	}
}
