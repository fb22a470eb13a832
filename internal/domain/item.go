package domain

import "time"

type Item struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	OwnerID   uint      `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public strips the owner reference so listings never leak who holds an item.
func (i Item) Public() Item {
	i.OwnerID = 0
	return i
}

func (i Item) OwnedBy(accountID uint) bool {
	return i.OwnerID == accountID
}
