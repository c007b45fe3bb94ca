package geo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"retiree-match/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownLocation 表示邮编无法解析为坐标。
var ErrUnknownLocation = errors.New("unknown location")

const missMarker = "-"

// Source 坐标参考表。
type Source interface {
	FindCoordinates(ctx context.Context, zip, country string) (model.ZipCoordinate, error)
}

// Config 坐标缓存配置。
type Config struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	MissTTL  time.Duration `mapstructure:"miss_ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// Locator 解析邮编坐标，结果缓存于 redis；并发的同一查询只访问一次参考表。
type Locator struct {
	source Source
	cache  redis.Cmdable
	cfg    Config
	group  singleflight.Group
	logger *zap.Logger
}

// NewLocator 创建 Locator，cache 为空时直接查询参考表。
func NewLocator(source Source, cache redis.Cmdable, cfg Config, logger *zap.Logger) *Locator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.MissTTL <= 0 {
		cfg.MissTTL = 10 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "zipcoord"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{source: source, cache: cache, cfg: cfg, logger: logger}
}

// Locate 返回邮编中心坐标，未知邮编返回 ErrUnknownLocation。
func (l *Locator) Locate(ctx context.Context, zip, country string) (Point, error) {
	key := fmt.Sprintf("%s:%s:%s", l.cfg.Prefix, country, zip)

	if p, ok, err := l.cached(ctx, key); ok {
		return p, err
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		c, err := l.source.FindCoordinates(ctx, zip, country)
		if errors.Is(err, sql.ErrNoRows) {
			l.store(ctx, key, missMarker, l.cfg.MissTTL)
			return Point{}, ErrUnknownLocation
		}
		if err != nil {
			return Point{}, err
		}
		p := Point{Lat: c.Lat, Lon: c.Lon}
		if data, err := json.Marshal(p); err == nil {
			l.store(ctx, key, string(data), l.cfg.CacheTTL)
		}
		return p, nil
	})
	if err != nil {
		return Point{}, err
	}
	return v.(Point), nil
}

func (l *Locator) cached(ctx context.Context, key string) (Point, bool, error) {
	if l.cache == nil {
		return Point{}, false, nil
	}
	val, err := l.cache.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Point{}, false, nil
	}
	if err != nil {
		l.logger.Warn("zip cache read failed", zap.String("key", key), zap.Error(err))
		return Point{}, false, nil
	}
	if val == missMarker {
		return Point{}, true, ErrUnknownLocation
	}
	var p Point
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		l.logger.Warn("zip cache entry corrupt", zap.String("key", key), zap.Error(err))
		return Point{}, false, nil
	}
	return p, true, nil
}

func (l *Locator) store(ctx context.Context, key, val string, ttl time.Duration) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Set(ctx, key, val, ttl).Err(); err != nil {
		l.logger.Warn("zip cache write failed", zap.String("key", key), zap.Error(err))
	}
}
