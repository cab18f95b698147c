package cache

import (
	"context"
	"testing"
	"time"

	"plantdoc/internal/model"
	"plantdoc/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionCache(client, ttl), mr
}

func answeredSnapshot(t *testing.T) session.Snapshot {
	t.Helper()
	s := session.New()
	s.Initialize(model.PlantType{ID: 3, Name: "Fern"}, model.Questionnaire{Questions: []model.Question{
		{Text: "Q1", Order: 1, Answers: []model.Answer{{Text: "Yes"}}},
	}})
	_, err := s.RecordAnswer(0, "", "Yes")
	require.NoError(t, err)
	return s.Snapshot()
}

func TestSessionCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()
	snap := answeredSnapshot(t)

	require.NoError(t, c.Set(ctx, "u-1", snap))
	got, err := c.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, snap, *got)

	_, err = session.Restore(*got)
	assert.NoError(t, err)
}

func TestSessionCacheMissingAndDelete(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	_, err := c.Get(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "u-1", answeredSnapshot(t)))
	require.NoError(t, c.Delete(ctx, "u-1"))
	_, err = c.Get(ctx, "u-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionCacheExpires(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "u-1", answeredSnapshot(t)))

	assert.Equal(t, time.Minute, mr.TTL(sessionKey("u-1")))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "u-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
