package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisStore_KeyPerWindow(t *testing.T) {
	s := NewRedisStore(nil, "track", 5, time.Minute)

	base := time.Date(2025, 1, 1, 10, 0, 5, 0, time.UTC)
	s.now = func() time.Time { return base }
	k1 := s.key("1.2.3.4")

	s.now = func() time.Time { return base.Add(30 * time.Second) }
	k2 := s.key("1.2.3.4")

	s.now = func() time.Time { return base.Add(60 * time.Second) }
	k3 := s.key("1.2.3.4")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "throttle:track:1.2.3.4:")
}
