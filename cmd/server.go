package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"retiree-match/internal/api"
	"retiree-match/internal/geo"
	"retiree-match/internal/logger"
	"retiree-match/internal/matching"
	"retiree-match/internal/metrics"
	"retiree-match/internal/notifier"
	"retiree-match/internal/scheduler"
	"retiree-match/internal/storage"
	"retiree-match/internal/trigger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type appScheduler interface {
	Start(ctx context.Context) error
	RunOnce(ctx context.Context, req matching.Request) (matching.Result, error)
}

// appDeps 组装完成的运行时组件。
type appDeps struct {
	sched   appScheduler
	handler http.Handler
	store   *storage.Store
	workers []func(context.Context) error
	logger  *zap.Logger
}

type appBuilder func(AppConfig) (appDeps, func(), error)

// buildApp 按配置创建存储、缓存、通知与匹配引擎。
func buildApp(cfg AppConfig) (appDeps, func(), error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return appDeps{}, func() {}, fmt.Errorf("init logger: %w", err)
	}

	closers := []func(){func() { _ = log.Sync() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := storage.NewStore(cfg.Database)
	if err != nil {
		cleanup()
		return appDeps{}, func() {}, fmt.Errorf("init store: %w", err)
	}
	closers = append(closers, func() { _ = store.Close() })

	var rdb *redis.Client
	var cache redis.Cmdable
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		closers = append(closers, func() { _ = rdb.Close() })
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			cleanup()
			return appDeps{}, func() {}, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
		}
		cache = rdb
	} else {
		log.Info("redis disabled: geocode cache and live delivery off")
	}

	m := metrics.New()
	var workers []func(context.Context) error

	mailer, tokens, err := buildMailer(cfg, rdb, log)
	if err != nil {
		cleanup()
		return appDeps{}, func() {}, err
	}
	if tokens != nil {
		workers = append(workers, func(ctx context.Context) error {
			tokens.Run(ctx, time.Minute)
			return nil
		})
	}

	var live notifier.LivePublisher
	if rdb != nil {
		live = notifier.NewRedisPublisher(rdb, "")
	}
	dispatcher := notifier.NewDispatcher(store, live, mailer, m, cfg.Notifier, log)
	closers = append(closers, dispatcher.Close)

	engine := matching.NewEngine(matching.Deps{
		Candidates: store,
		Postings:   store,
		Reference:  store,
		Matches:    store,
		Runs:       store,
		Sink:       dispatcher,
		Geocoder:   geo.NewLocator(store, cache, cfg.Geo, log),
		Metrics:    m,
	}, cfg.Matching.Config, log)

	sched := scheduler.NewScheduler(engine, cfg.Scheduler, engine.Config().Interval(), log)
	handler := api.NewHandler(store, sched, m.Handler(), m)

	if cfg.Trigger.URL != "" {
		consumer := trigger.NewConsumer(cfg.Trigger, trigger.NewHandler(engine, store, m, log), log)
		workers = append(workers, func(ctx context.Context) error {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("trigger consumer stopped", zap.Error(err))
			}
			return nil
		})
	}

	return appDeps{sched: sched, handler: handler, store: store, workers: workers, logger: log}, cleanup, nil
}

// buildMailer 选择邮件通道，返回需要后台清理的内存令牌存储。
func buildMailer(cfg AppConfig, rdb *redis.Client, log *zap.Logger) (notifier.Mailer, *notifier.MemoryTokens, error) {
	var sender notifier.EmailSender
	switch cfg.Email.Provider {
	case "", "log":
		sender = notifier.NewLogSender(log)
	case "smtp":
		if cfg.Email.Host == "" || cfg.Email.Port == 0 || cfg.Email.From == "" {
			return nil, nil, fmt.Errorf("smtp email requires host, port and from")
		}
		sender = notifier.NewSMTPClient(cfg.Email)
	case "ses":
		client, err := notifier.NewSESClient(context.Background(), cfg.Email.Region)
		if err != nil {
			return nil, nil, fmt.Errorf("init ses: %w", err)
		}
		sender = client
	default:
		return nil, nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}

	var store notifier.TokenStore
	var memory *notifier.MemoryTokens
	if cfg.Links.BackendURL != "" {
		if rdb != nil {
			store = notifier.NewRedisTokens(rdb, "")
		} else {
			memory = notifier.NewMemoryTokens()
			store = memory
		}
	}
	links := notifier.NewMagicLinks(cfg.Links, store)
	return notifier.NewEmailNotifier(cfg.Email, sender, links), memory, nil
}

// runServer 并行运行 HTTP 服务、调度器与后台任务，上下文取消后优雅关闭。
func runServer(ctx context.Context, srv httpServer, sched appScheduler, timeout time.Duration, workers ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	for _, w := range workers {
		w := w
		g.Go(func() error { return w(gctx) })
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runOnceManual 构建依赖后执行一次匹配，用于命令行手动触发。
func runOnceManual(ctx context.Context, cfg AppConfig, req matching.Request, build appBuilder) (matching.Result, error) {
	deps, cleanup, err := build(cfg)
	if err != nil {
		return matching.Result{}, err
	}
	defer cleanup()
	return deps.sched.RunOnce(ctx, req)
}
