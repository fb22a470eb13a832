package domain

import "time"

type EventType string

const (
	EventItemListed  EventType = "item.listed"
	EventItemSold    EventType = "item.sold"
	EventItemRemoved EventType = "item.removed"
)

// MarketEvent is broadcast on the public feed. It carries no account identity.
type MarketEvent struct {
	Type   EventType `json:"type"`
	ItemID uint      `json:"item_id"`
	Name   string    `json:"name"`
	Price  int64     `json:"price"`
	At     time.Time `json:"at"`
}

func NewMarketEvent(t EventType, item Item, at time.Time) MarketEvent {
	return MarketEvent{
		Type:   t,
		ItemID: item.ID,
		Name:   item.Name,
		Price:  item.Price,
		At:     at,
	}
}
