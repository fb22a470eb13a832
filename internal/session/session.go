// Package session stores the server side of login sessions. A session is
// the request-scoped identity handed to the services; logout and account
// removal revoke it here.
package session

import (
	"context"
	"errors"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

type Store interface {
	Create(ctx context.Context, accountID uint, userAgent string) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForAccount(ctx context.Context, accountID uint) error
}
