package notifier

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound 令牌不存在或已过期。
var ErrTokenNotFound = errors.New("magic link token not found")

// TokenStore 保存一次性登录令牌。
type TokenStore interface {
	Put(ctx context.Context, token, email string, ttl time.Duration) error
	Take(ctx context.Context, token string) (string, error)
}

// LinkConfig 邮件链接配置。
type LinkConfig struct {
	FrontendURL string        `mapstructure:"frontend_url"`
	BackendURL  string        `mapstructure:"backend_url"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// MagicLinks 为邮件中的链接附加一次性登录令牌。
type MagicLinks struct {
	cfg   LinkConfig
	store TokenStore
	token func() (string, error)
}

// NewMagicLinks 创建链接构造器；store 为空时仅拼接前端地址。
func NewMagicLinks(cfg LinkConfig, store TokenStore) *MagicLinks {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	return &MagicLinks{cfg: cfg, store: store, token: randomToken}
}

// Link 生成 target 对应的邮件链接。
func (m *MagicLinks) Link(ctx context.Context, email, target string) (string, error) {
	if m.store == nil || m.cfg.BackendURL == "" {
		return joinURL(m.cfg.FrontendURL, target), nil
	}
	token, err := m.token()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if err := m.store.Put(ctx, token, email, m.cfg.TokenTTL); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	q := url.Values{}
	q.Set("token", token)
	q.Set("userType", "auto")
	q.Set("redirect", target)
	return joinURL(m.cfg.BackendURL, "/api/v1/verify-magiclink") + "?" + q.Encode(), nil
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RedisTokens 以 Redis 键过期管理令牌。
type RedisTokens struct {
	client redis.Cmdable
	prefix string
}

func NewRedisTokens(client redis.Cmdable, prefix string) *RedisTokens {
	if prefix == "" {
		prefix = "magiclink"
	}
	return &RedisTokens{client: client, prefix: prefix}
}

func (r *RedisTokens) Put(ctx context.Context, token, email string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+":"+token, email, ttl).Err()
}

func (r *RedisTokens) Take(ctx context.Context, token string) (string, error) {
	email, err := r.client.GetDel(ctx, r.prefix+":"+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

type memoryToken struct {
	email   string
	expires time.Time
}

// MemoryTokens 进程内令牌存储，需要调用 Sweep 或 Run 回收过期项。
type MemoryTokens struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{tokens: make(map[string]memoryToken), now: time.Now}
}

func (m *MemoryTokens) Put(_ context.Context, token, email string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = memoryToken{email: email, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryTokens) Take(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	delete(m.tokens, token)
	if !ok || !m.now().Before(t.expires) {
		return "", ErrTokenNotFound
	}
	return t.email, nil
}

// Sweep 删除已过期令牌，返回删除数量。
func (m *MemoryTokens) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for k, t := range m.tokens {
		if !now.Before(t.expires) {
			delete(m.tokens, k)
			removed++
		}
	}
	return removed
}

// Run 按 interval 周期清理，直到 ctx 结束。
func (m *MemoryTokens) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
