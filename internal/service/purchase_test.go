package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/repository"
)

func TestPurchaseService_Buy(t *testing.T) {
	tests := []struct {
		name         string
		buyerBalance int64
		price        int64
		selfPurchase bool
		wantOutcome  domain.PurchaseOutcome
		wantMessage  string
	}{
		{
			name:         "exact balance",
			buyerBalance: 100,
			price:        100,
			wantOutcome:  domain.PurchaseCompleted,
			wantMessage:  "Transaction successful!",
		},
		{
			name:         "insufficient funds",
			buyerBalance: 50,
			price:        100,
			wantOutcome:  domain.PurchaseInsufficientFunds,
			wantMessage:  "Oops, bob has insufficient funds",
		},
		{
			name:         "already owned",
			buyerBalance: 100,
			price:        10,
			selfPurchase: true,
			wantOutcome:  domain.PurchaseAlreadyOwned,
			wantMessage:  "Oops, bob already owns this item",
		},
		{
			name:         "free item",
			buyerBalance: 0,
			price:        0,
			wantOutcome:  domain.PurchaseCompleted,
			wantMessage:  "Transaction successful!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			seller := f.account(t, "alice", 100)
			buyer := f.account(t, "bob", tt.buyerBalance)

			owner := seller.ID
			if tt.selfPurchase {
				owner = buyer.ID
			}
			it := f.item(t, owner, "lamp", tt.price)

			svc := NewPurchaseService(f.store.Transfers(), f.publisher)
			got, err := svc.Buy(context.Background(), buyer.ID, it.ID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOutcome, got.Outcome)
			assert.Equal(t, tt.wantMessage, got.Message)

			if tt.wantOutcome == domain.PurchaseCompleted {
				require.NotNil(t, got.Item)
				require.NotNil(t, got.Balance)
				assert.Equal(t, buyer.ID, got.Item.OwnerID)
				assert.Equal(t, tt.buyerBalance-tt.price, *got.Balance)

				assert.Equal(t, tt.buyerBalance-tt.price, f.balance(t, buyer.ID))
				assert.Equal(t, 100+tt.price, f.balance(t, seller.ID))
				assert.Equal(t, buyer.ID, f.owner(t, it.ID))
				assert.Equal(t, []domain.EventType{domain.EventItemSold}, f.publisher.Types())
				return
			}

			assert.Nil(t, got.Item)
			assert.Nil(t, got.Balance)
			assert.Equal(t, tt.buyerBalance, f.balance(t, buyer.ID))
			assert.Equal(t, int64(100), f.balance(t, seller.ID))
			assert.Equal(t, owner, f.owner(t, it.ID))
			assert.Empty(t, f.publisher.Types())
		})
	}
}

func TestPurchaseService_Buy_Errors(t *testing.T) {
	t.Run("item not found", func(t *testing.T) {
		f := newFixture()
		buyer := f.account(t, "bob", 100)

		svc := NewPurchaseService(f.store.Transfers(), f.publisher)
		_, err := svc.Buy(context.Background(), buyer.ID, 404)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("buyer not found", func(t *testing.T) {
		f := newFixture()
		seller := f.account(t, "alice", 100)
		it := f.item(t, seller.ID, "lamp", 10)

		svc := NewPurchaseService(f.store.Transfers(), f.publisher)
		_, err := svc.Buy(context.Background(), 999, it.ID)
		assert.ErrorIs(t, err, ErrBuyerNotFound)
		assert.Equal(t, int64(100), f.balance(t, seller.ID))
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture()
		seller := f.account(t, "alice", 100)
		buyer := f.account(t, "bob", 100)
		it := f.item(t, seller.ID, "lamp", 10)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := NewPurchaseService(f.store.Transfers(), f.publisher)
		_, err := svc.Buy(ctx, buyer.ID, it.ID)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, seller.ID, f.owner(t, it.ID))
	})
}

type failingTransfers struct {
	inner TransferRepository
}

func (f failingTransfers) Atomically(ctx context.Context, fn func(tx repository.TransferTx) error) error {
	return f.inner.Atomically(ctx, func(tx repository.TransferTx) error {
		return fn(failingOwnerTx{TransferTx: tx})
	})
}

type failingOwnerTx struct {
	repository.TransferTx
}

func (t failingOwnerTx) WriteOwner(item domain.Item) error {
	return fmt.Errorf("%w: item %d -> disk full", repository.ErrPartialTransfer, item.ID)
}

func TestPurchaseService_Buy_PartialWriteRollsBack(t *testing.T) {
	f := newFixture()
	seller := f.account(t, "alice", 100)
	buyer := f.account(t, "bob", 100)
	it := f.item(t, seller.ID, "lamp", 30)

	svc := NewPurchaseService(failingTransfers{inner: f.store.Transfers()}, f.publisher)
	_, err := svc.Buy(context.Background(), buyer.ID, it.ID)
	require.ErrorIs(t, err, ErrPartialTransfer)

	assert.Equal(t, int64(100), f.balance(t, buyer.ID))
	assert.Equal(t, int64(100), f.balance(t, seller.ID))
	assert.Equal(t, seller.ID, f.owner(t, it.ID))
	assert.Empty(t, f.publisher.Types())
}

func TestPurchaseService_Buy_ShortCircuitIsIdempotent(t *testing.T) {
	f := newFixture()
	buyer := f.account(t, "bob", 100)
	it := f.item(t, buyer.ID, "lamp", 10)

	svc := NewPurchaseService(f.store.Transfers(), f.publisher)
	for i := 0; i < 3; i++ {
		got, err := svc.Buy(context.Background(), buyer.ID, it.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PurchaseAlreadyOwned, got.Outcome)
	}

	assert.Equal(t, int64(100), f.balance(t, buyer.ID))
	assert.Equal(t, buyer.ID, f.owner(t, it.ID))
}

func TestPurchaseService_Buy_ConservesMoney(t *testing.T) {
	f := newFixture()
	a := f.account(t, "a", 100)
	b := f.account(t, "b", 100)
	c := f.account(t, "c", 100)

	lamp := f.item(t, a.ID, "lamp", 40)
	chair := f.item(t, b.ID, "chair", 70)
	rug := f.item(t, c.ID, "rug", 120)

	svc := NewPurchaseService(f.store.Transfers(), f.publisher)
	steps := []struct {
		buyer uint
		item  uint
	}{
		{b.ID, lamp.ID},
		{c.ID, lamp.ID},
		{a.ID, chair.ID},
		{a.ID, rug.ID},
		{b.ID, rug.ID},
		{c.ID, chair.ID},
		{c.ID, 999},
	}

	total := f.store.TotalBalance()
	for _, s := range steps {
		_, err := svc.Buy(context.Background(), s.buyer, s.item)
		if err != nil {
			require.ErrorIs(t, err, ErrItemNotFound)
		}
		assert.Equal(t, total, f.store.TotalBalance())
	}

	for _, id := range []uint{a.ID, b.ID, c.ID} {
		assert.GreaterOrEqual(t, f.balance(t, id), int64(0))
	}
}

func TestPurchaseService_Buy_RefusesSellerBalanceOverflow(t *testing.T) {
	f := newFixture()
	seller := f.account(t, "seller", 1)
	buyer := f.account(t, "bob", math.MaxInt64)
	it := f.item(t, seller.ID, "crown", math.MaxInt64)

	svc := NewPurchaseService(f.store.Transfers(), f.publisher)

	_, err := svc.Buy(context.Background(), buyer.ID, it.ID)
	require.ErrorIs(t, err, ErrBalanceOverflow)

	assert.Equal(t, int64(1), f.balance(t, seller.ID))
	assert.Equal(t, int64(math.MaxInt64), f.balance(t, buyer.ID))
	assert.Equal(t, seller.ID, f.owner(t, it.ID))
	assert.Empty(t, f.publisher.Types())
}

// Every buyer that can afford the item succeeds, but each attempt is
// evaluated against the owner left by the previous one: the first buys from
// the seller and every later one resells from the buyer before it. No sale
// is applied twice against the same owner state.
func TestPurchaseService_Buy_ConcurrentBuyersResellInTurn(t *testing.T) {
	f := newFixture()
	seller := f.account(t, "seller", 0)
	it := f.item(t, seller.ID, "painting", 60)

	const buyers = 16
	ids := make([]uint, buyers)
	for i := range ids {
		ids[i] = f.account(t, fmt.Sprintf("buyer-%d", i), 100).ID
	}

	svc := NewPurchaseService(f.store.Transfers(), f.publisher)

	var (
		wg        sync.WaitGroup
		completed atomic.Int32
	)
	for _, id := range ids {
		wg.Add(1)
		go func(buyerID uint) {
			defer wg.Done()

			got, err := svc.Buy(context.Background(), buyerID, it.ID)
			if assert.NoError(t, err) && got.Completed() {
				completed.Add(1)
			}
		}(id)
	}
	wg.Wait()

	// Each sale after the first resells from the previous buyer, so the
	// seller is paid once and every buyer except the final owner got its
	// money back.
	assert.Equal(t, int32(buyers), completed.Load())
	assert.Equal(t, int64(60), f.balance(t, seller.ID))
	assert.Equal(t, int64(buyers*100), f.store.TotalBalance())

	finalOwner := f.owner(t, it.ID)
	for _, id := range ids {
		want := int64(100)
		if id == finalOwner {
			want = 40
		}
		assert.Equal(t, want, f.balance(t, id))
	}
}

func TestPurchaseService_Buy_DoubleSubmitOneSuccess(t *testing.T) {
	f := newFixture()
	seller := f.account(t, "seller", 0)
	buyer := f.account(t, "bob", 100)
	it := f.item(t, seller.ID, "painting", 60)

	svc := NewPurchaseService(f.store.Transfers(), f.publisher)

	results := make([]domain.PurchaseResult, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			got, err := svc.Buy(context.Background(), buyer.ID, it.ID)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	outcomes := []domain.PurchaseOutcome{results[0].Outcome, results[1].Outcome}
	assert.ElementsMatch(t, []domain.PurchaseOutcome{domain.PurchaseCompleted, domain.PurchaseAlreadyOwned}, outcomes)
	assert.Equal(t, int64(40), f.balance(t, buyer.ID))
	assert.Equal(t, int64(60), f.balance(t, seller.ID))
	assert.Equal(t, []domain.EventType{domain.EventItemSold}, f.publisher.Types())
}

func TestPurchaseService_Buy_ConcurrentCrossPurchases(t *testing.T) {
	f := newFixture()
	a := f.account(t, "a", 1000)
	b := f.account(t, "b", 1000)
	ofA := f.item(t, a.ID, "from-a", 10)
	ofB := f.item(t, b.ID, "from-b", 10)

	svc := NewPurchaseService(f.store.Transfers(), f.publisher)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Buy(context.Background(), b.ID, ofA.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Buy(context.Background(), a.ID, ofB.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2000), f.store.TotalBalance())
}
