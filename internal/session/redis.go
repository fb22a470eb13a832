package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

const (
	sessionKeyPrefix        = "session:"
	accountSessionKeyPrefix = "account_sessions:"
)

// RedisStore keeps each session in a hash that expires with the session,
// plus a per-account set used to revoke every session of an account.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
		now: time.Now,
	}
}

// NewRedisClient dials addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("rdb.Ping -> %w", err)
	}

	return rdb, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func accountSessionsKey(accountID uint) string {
	return accountSessionKeyPrefix + strconv.FormatUint(uint64(accountID), 10)
}

func (s *RedisStore) Create(ctx context.Context, accountID uint, userAgent string) (domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(sess.ID), map[string]interface{}{
			"account_id": strconv.FormatUint(uint64(accountID), 10),
			"user_agent": userAgent,
			"created_at": now.UTC().Format(time.RFC3339Nano),
			"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, sessionKey(sess.ID), s.ttl)
		pipe.SAdd(ctx, accountSessionsKey(accountID), sess.ID)
		pipe.Expire(ctx, accountSessionsKey(accountID), s.ttl)
		return nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("s.rdb.TxPipelined -> %w", err)
	}

	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (domain.Session, error) {
	fields, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("s.rdb.HGetAll -> %w", err)
	}
	if len(fields) == 0 {
		return domain.Session{}, ErrSessionNotFound
	}

	sess, err := decodeSession(id, fields)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Expired(s.now()) {
		return domain.Session{}, ErrSessionNotFound
	}

	return sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	accountID, err := s.rdb.HGet(ctx, sessionKey(id), "account_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("s.rdb.HGet -> %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.SRem(ctx, accountSessionKeyPrefix+accountID, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("s.rdb.TxPipelined -> %w", err)
	}

	return nil
}

func (s *RedisStore) DeleteAllForAccount(ctx context.Context, accountID uint) error {
	setKey := accountSessionsKey(accountID)

	ids, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("s.rdb.SMembers -> %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, setKey)

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("s.rdb.Del -> %w", err)
	}

	return nil
}

func decodeSession(id string, fields map[string]string) (domain.Session, error) {
	accountID, err := strconv.ParseUint(fields["account_id"], 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session %s has a bad account_id -> %w", id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return domain.Session{}, fmt.Errorf("session %s has a bad created_at -> %w", id, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return domain.Session{}, fmt.Errorf("session %s has a bad expires_at -> %w", id, err)
	}

	return domain.Session{
		ID:        id,
		AccountID: uint(accountID),
		UserAgent: fields["user_agent"],
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}
