package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/model"
)

func newTestCache(t *testing.T) (*HistoryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHistoryCache(client, time.Minute, 5*time.Second), mr
}

func TestHistoryCache_FillThenLookup(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, hit, err := c.Lookup(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, hit)

	in := []model.Message{
		{ID: 1, ChatID: "chat-1", Role: model.RoleUser, Content: "What is the total?"},
		{ID: 2, ChatID: "chat-1", Role: model.RoleAssistant, Content: "$42"},
	}
	stored, err := c.Fill(ctx, "chat-1", in)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, time.Minute, mr.TTL("chat:history:chat-1"))

	out, hit, err := c.Lookup(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, out, 2)
	assert.Equal(t, "$42", out[1].Content)
	assert.Equal(t, model.RoleAssistant, out[1].Role)
}

func TestHistoryCache_InvalidateBlocksFillUntilMarkerExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.Fill(ctx, "chat-1", []model.Message{{ChatID: "chat-1", Content: "hi"}})
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "chat-1"))

	assert.False(t, mr.Exists("chat:history:chat-1"))
	assert.Equal(t, 5*time.Second, mr.TTL("chat:history:dirty:chat-1"))

	stored, err := c.Fill(ctx, "chat-1", []model.Message{{ChatID: "chat-1", Content: "stale"}})
	require.NoError(t, err)
	assert.False(t, stored)
	_, hit, err := c.Lookup(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, hit)

	mr.FastForward(6 * time.Second)
	stored, err = c.Fill(ctx, "chat-1", []model.Message{{ChatID: "chat-1", Content: "fresh"}})
	require.NoError(t, err)
	assert.True(t, stored)
	out, hit, err := c.Lookup(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "fresh", out[0].Content)
}

func TestHistoryCache_DirtyEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("chat:history:chat-1", `[{"content":"old"}]`))
	require.NoError(t, mr.Set("chat:history:dirty:chat-1", "1"))

	_, hit, err := c.Lookup(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestHistoryCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("chat:history:chat-1", "{not json"))

	_, _, err := c.Lookup(context.Background(), "chat-1")
	assert.Error(t, err)
}

func TestHistoryCache_ServerDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, _, err := c.Lookup(context.Background(), "chat-1")
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(context.Background(), "chat-1"))
}
