package domain

import (
	"errors"
	"fmt"
	"math"
)

// MaxAmount caps every balance and price accepted from clients.
const MaxAmount int64 = 1_000_000_000_000

var ErrBalanceOverflow = errors.New("sale would overflow the seller balance")

type PurchaseOutcome string

const (
	PurchaseCompleted         PurchaseOutcome = "completed"
	PurchaseAlreadyOwned      PurchaseOutcome = "already_owned"
	PurchaseInsufficientFunds PurchaseOutcome = "insufficient_funds"
)

// PurchaseResult is what a purchase attempt reports back. Business
// short-circuits are results, not errors.
type PurchaseResult struct {
	Outcome PurchaseOutcome `json:"outcome"`
	Message string          `json:"msg"`
	Item    *Item           `json:"item,omitempty"`
	Balance *int64          `json:"balance,omitempty"`
}

func (r PurchaseResult) Completed() bool {
	return r.Outcome == PurchaseCompleted
}

// EvaluatePurchase applies the business rules that may stop a purchase
// before any money moves. It returns PurchaseCompleted when the purchase may
// proceed.
func EvaluatePurchase(buyer Account, item Item) PurchaseOutcome {
	if item.OwnedBy(buyer.ID) {
		return PurchaseAlreadyOwned
	}
	if buyer.Balance < item.Price {
		return PurchaseInsufficientFunds
	}

	return PurchaseCompleted
}

func PurchaseMessage(outcome PurchaseOutcome, buyer Account) string {
	switch outcome {
	case PurchaseAlreadyOwned:
		return fmt.Sprintf("Oops, %s already owns this item", buyer.UserName)
	case PurchaseInsufficientFunds:
		return fmt.Sprintf("Oops, %s has insufficient funds", buyer.UserName)
	default:
		return "Transaction successful!"
	}
}

// Settle moves the item to the buyer and the price to the previous owner.
// It does not check the rules; call EvaluatePurchase first. A sale the
// owner's balance cannot hold is refused and nothing changes.
func Settle(buyer, owner Account, item Item) (Account, Account, Item, error) {
	if item.Price < 0 || owner.Balance > math.MaxInt64-item.Price {
		return buyer, owner, item, ErrBalanceOverflow
	}

	buyer.Balance -= item.Price
	owner.Balance += item.Price
	item.OwnerID = buyer.ID

	return buyer, owner, item, nil
}
