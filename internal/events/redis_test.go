package events

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/yizeng/gab/gin/gorm/marketplace/internal/domain"
)

func TestRedisRelay_FallsBackToLocalHub(t *testing.T) {
	hub, _ := startHub(t)
	s := hub.Subscribe()

	// Nothing listens on port 1.
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	relay := NewRedisRelay(rdb, DefaultChannel, hub)
	relay.Publish(domain.NewMarketEvent(domain.EventItemRemoved, domain.Item{ID: 5, Name: "desk"}, time.Now()))

	event := receive(t, s)
	assert.Equal(t, domain.EventItemRemoved, event.Type)
	assert.Equal(t, uint(5), event.ItemID)
}
