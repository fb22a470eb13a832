package domain

import "time"

const DefaultBalance int64 = 100

type Account struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	UserName  string    `json:"user_name"`
	Password  string    `json:"-"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountWithItems is the account view returned by /users/me and /summary.
type AccountWithItems struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	UserName string `json:"user_name"`
	Balance  int64  `json:"balance"`
	Items    []Item `json:"items"`
}

func NewAccountWithItems(a Account, items []Item) AccountWithItems {
	if items == nil {
		items = []Item{}
	}

	return AccountWithItems{
		ID:       a.ID,
		Name:     a.Name,
		UserName: a.UserName,
		Balance:  a.Balance,
		Items:    items,
	}
}
