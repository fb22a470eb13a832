package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/events"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/pkg/jwthelper"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/session"
)

var (
	ErrUserNameExists     = repository.ErrUserNameExists
	ErrAccountNotFound    = repository.ErrAccountNotFound
	ErrInvalidCredentials = errors.New("invalid user name or password")
	ErrInvalidSession     = errors.New("invalid session")
)

type AuthAccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	FindByID(ctx context.Context, id uint) (domain.Account, error)
	FindByUserName(ctx context.Context, userName string) (domain.Account, error)
	Delete(ctx context.Context, id uint) error
}

type OwnedItemRepository interface {
	FindByOwner(ctx context.Context, ownerID uint) ([]domain.Item, error)
}

type AuthConfig struct {
	SigningKey     string
	DefaultBalance int64
}

type AuthService struct {
	accounts  AuthAccountRepository
	items     OwnedItemRepository
	sessions  session.Store
	publisher events.Publisher
	conf      AuthConfig
	now       func() time.Time
}

func NewAuthService(
	accounts AuthAccountRepository,
	items OwnedItemRepository,
	sessions session.Store,
	publisher events.Publisher,
	conf AuthConfig,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		items:     items,
		sessions:  sessions,
		publisher: publisher,
		conf:      conf,
		now:       time.Now,
	}
}

// Register creates an account. A nil balance means the configured default.
func (s *AuthService) Register(ctx context.Context, account domain.Account, balance *int64) (domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, fmt.Errorf("bcrypt.GenerateFromPassword -> %w", err)
	}
	account.Password = string(hash)

	account.Balance = s.conf.DefaultBalance
	if balance != nil {
		account.Balance = *balance
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		return domain.Account{}, fmt.Errorf("s.accounts.Create -> %w", err)
	}

	return created, nil
}

type LoginResult struct {
	Account domain.Account
	Session domain.Session
	Token   string
}

// Login never tells an unknown user name apart from a wrong password.
func (s *AuthService) Login(ctx context.Context, userName, password, userAgent string) (LoginResult, error) {
	account, err := s.accounts.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}

		return LoginResult{}, fmt.Errorf("s.accounts.FindByUserName -> %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, account.ID, userAgent)
	if err != nil {
		return LoginResult{}, fmt.Errorf("s.sessions.Create -> %w", err)
	}

	token, err := jwthelper.GenerateToken([]byte(s.conf.SigningKey), account.ID, sess.ID, userAgent, sess.ExpiresAt)
	if err != nil {
		return LoginResult{}, fmt.Errorf("jwthelper.GenerateToken -> %w", err)
	}

	return LoginResult{
		Account: account,
		Session: sess,
		Token:   token,
	}, nil
}

// Authenticate resolves a token to a live session. The session must still
// exist server side and belong to the same client.
func (s *AuthService) Authenticate(ctx context.Context, token, userAgent string) (domain.Session, error) {
	claims, err := jwthelper.ParseToken([]byte(s.conf.SigningKey), token)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claims.UserAgent != userAgent {
		return domain.Session{}, fmt.Errorf("%w: user agent mismatch", ErrInvalidSession)
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return domain.Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
		}

		return domain.Session{}, fmt.Errorf("s.sessions.Get -> %w", err)
	}
	if sess.AccountID != claims.AccountID || sess.Expired(s.now()) {
		return domain.Session{}, fmt.Errorf("%w: session %s does not match token", ErrInvalidSession, sess.ID)
	}

	return sess, nil
}

// Logout revokes sess and returns the account it belonged to.
func (s *AuthService) Logout(ctx context.Context, sess domain.Session) (domain.Account, error) {
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return domain.Account{}, fmt.Errorf("s.sessions.Delete -> %w", err)
	}

	account, err := s.accounts.FindByID(ctx, sess.AccountID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("s.accounts.FindByID -> %w", err)
	}

	return account, nil
}

// DeleteAccount removes the session's account together with every item it
// owns and revokes all of its sessions.
func (s *AuthService) DeleteAccount(ctx context.Context, sess domain.Session) error {
	owned, err := s.items.FindByOwner(ctx, sess.AccountID)
	if err != nil {
		return fmt.Errorf("s.items.FindByOwner -> %w", err)
	}

	if err = s.accounts.Delete(ctx, sess.AccountID); err != nil {
		return fmt.Errorf("s.accounts.Delete -> %w", err)
	}

	if err = s.sessions.DeleteAllForAccount(ctx, sess.AccountID); err != nil {
		// Leftover sessions resolve to an account that no longer exists.
		zap.L().Warn("failed to revoke sessions of deleted account",
			zap.Uint("account_id", sess.AccountID),
			zap.Error(err),
		)
	}

	now := s.now()
	for _, it := range owned {
		s.publisher.Publish(domain.NewMarketEvent(domain.EventItemRemoved, it, now))
	}

	return nil
}
