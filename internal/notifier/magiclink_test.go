package notifier

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicLinksWithoutStoreJoinsFrontend(t *testing.T) {
	t.Parallel()

	m := NewMagicLinks(LinkConfig{FrontendURL: "https://app.example.com"}, nil)
	link, err := m.Link(context.Background(), "a@example.com", "/startup/matches/")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/startup/matches/", link)
}

func TestMagicLinksIssuesToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryTokens()
	m := NewMagicLinks(LinkConfig{BackendURL: "https://api.example.com/"}, store)
	m.token = func() (string, error) { return "tok", nil }

	link, err := m.Link(ctx, "a@example.com", "/startup/matches/p1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://api.example.com/api/v1/verify-magiclink?"))

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "tok", u.Query().Get("token"))
	assert.Equal(t, "auto", u.Query().Get("userType"))
	assert.Equal(t, "/startup/matches/p1", u.Query().Get("redirect"))

	email, err := store.Take(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	_, err = store.Take(ctx, "tok")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryTokensSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryTokens()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "old", "a@x", time.Minute))
	require.NoError(t, store.Put(ctx, "new", "b@x", time.Hour))

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, store.Sweep())

	_, err := store.Take(ctx, "old")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	email, err := store.Take(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "b@x", email)
}

func TestRedisTokensExpire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisTokens(client, "")
	require.NoError(t, store.Put(ctx, "t1", "a@x", 15*time.Minute))
	require.NoError(t, store.Put(ctx, "t2", "b@x", 15*time.Minute))
	assert.True(t, mr.Exists("magiclink:t1"))

	email, err := store.Take(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "a@x", email)

	mr.FastForward(16 * time.Minute)
	_, err = store.Take(ctx, "t2")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
