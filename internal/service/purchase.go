package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/events"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/metrics"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/tracing"
)

var (
	ErrBuyerNotFound   = errors.New("buyer not found")
	ErrOwnerNotFound   = errors.New("item owner not found")
	ErrPartialTransfer = repository.ErrPartialTransfer
	ErrBalanceOverflow = domain.ErrBalanceOverflow
)

type TransferRepository interface {
	Atomically(ctx context.Context, fn func(tx repository.TransferTx) error) error
}

type PurchaseService struct {
	transfers TransferRepository
	publisher events.Publisher
	now       func() time.Time
}

func NewPurchaseService(transfers TransferRepository, publisher events.Publisher) *PurchaseService {
	return &PurchaseService{
		transfers: transfers,
		publisher: publisher,
		now:       time.Now,
	}
}

// Buy moves itemID to buyerID and its price from the buyer to the current
// owner in one atomic step. An item the buyer already owns or cannot afford
// is reported in the result; nothing is written in that case.
func (s *PurchaseService) Buy(ctx context.Context, buyerID, itemID uint) (domain.PurchaseResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "PurchaseService.Buy", trace.WithAttributes(
		attribute.Int64("buyer.id", int64(buyerID)),
		attribute.Int64("item.id", int64(itemID)),
	))
	defer span.End()

	start := time.Now()

	var result domain.PurchaseResult
	err := s.transfers.Atomically(ctx, func(tx repository.TransferTx) error {
		var err error
		result, err = purchase(tx, buyerID, itemID)
		return err
	})
	if err != nil {
		metrics.RecordPurchaseFailure(time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "purchase failed")

		if isIntegrityFault(err) {
			zap.L().Error("purchase aborted",
				zap.Uint("buyer_id", buyerID),
				zap.Uint("item_id", itemID),
				zap.Error(err),
			)
		}

		return domain.PurchaseResult{}, fmt.Errorf("s.transfers.Atomically -> %w", err)
	}

	metrics.RecordPurchase(result.Outcome, time.Since(start))
	span.SetAttributes(attribute.String("purchase.outcome", string(result.Outcome)))

	if result.Completed() {
		s.publisher.Publish(domain.NewMarketEvent(domain.EventItemSold, *result.Item, s.now()))
	}

	return result, nil
}

// purchase runs with the transaction open. Locks are taken item first, then
// both accounts in ascending id order.
func purchase(tx repository.TransferTx, buyerID, itemID uint) (domain.PurchaseResult, error) {
	item, err := tx.LockItem(itemID)
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("tx.LockItem -> %w", err)
	}

	accounts, err := tx.LockAccounts(buyerID, item.OwnerID)
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("tx.LockAccounts -> %w", err)
	}

	// The owner may have been removed, with its items, while we waited.
	item, err = tx.LockItem(itemID)
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("tx.LockItem -> %w", err)
	}

	buyer, ok := accounts[buyerID]
	if !ok {
		return domain.PurchaseResult{}, fmt.Errorf("account %d -> %w", buyerID, ErrBuyerNotFound)
	}

	outcome := domain.EvaluatePurchase(buyer, item)
	if outcome != domain.PurchaseCompleted {
		return domain.PurchaseResult{
			Outcome: outcome,
			Message: domain.PurchaseMessage(outcome, buyer),
		}, nil
	}

	owner, ok := accounts[item.OwnerID]
	if !ok {
		return domain.PurchaseResult{}, fmt.Errorf("account %d owning item %d -> %w", item.OwnerID, item.ID, ErrOwnerNotFound)
	}

	buyer, owner, item, err = domain.Settle(buyer, owner, item)
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("domain.Settle -> %w", err)
	}

	if err = tx.WriteBalance(buyer); err != nil {
		return domain.PurchaseResult{}, err
	}
	if err = tx.WriteBalance(owner); err != nil {
		return domain.PurchaseResult{}, err
	}
	if err = tx.WriteOwner(item); err != nil {
		return domain.PurchaseResult{}, err
	}

	balance := buyer.Balance
	sold := item

	return domain.PurchaseResult{
		Outcome: domain.PurchaseCompleted,
		Message: domain.PurchaseMessage(domain.PurchaseCompleted, buyer),
		Item:    &sold,
		Balance: &balance,
	}, nil
}

func isIntegrityFault(err error) bool {
	return errors.Is(err, ErrPartialTransfer) || errors.Is(err, ErrOwnerNotFound)
}
