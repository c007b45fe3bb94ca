package matching

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"retiree-match/internal/model"
	"retiree-match/internal/scoring"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config 匹配引擎配置。
type Config struct {
	AcceptableScoreThreshold float64 `mapstructure:"acceptable_score_threshold"`
	IntervalMinutes          int     `mapstructure:"interval_minutes"`
	RetentionFactor          int     `mapstructure:"retention_factor"`
	Workers                  int     `mapstructure:"workers"`
}

// WithDefaults 填充默认值。
func (c Config) WithDefaults() Config {
	if c.AcceptableScoreThreshold <= 0 {
		c.AcceptableScoreThreshold = 0.33
	}
	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 10
	}
	if c.RetentionFactor <= 0 {
		c.RetentionFactor = 2
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	return c
}

// Interval 调度间隔。
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// RetentionWindow 历史批次保留时长。
func (c Config) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionFactor) * c.Interval()
}

// PostingRepository 职位查询接口。
type PostingRepository interface {
	FindPosting(ctx context.Context, id string) (model.JobPosting, error)
	FindUnfilledIDs(ctx context.Context) ([]string, error)
	FindStartupIDsForPostings(ctx context.Context, ids []string) ([]string, error)
	FindIDsByStartup(ctx context.Context, startupID string) ([]string, error)
}

// ReferenceData 参考数据查询接口。
type ReferenceData interface {
	ListProficiencyLevels(ctx context.Context) ([]model.ProficiencyLevel, error)
}

// MatchStore 匹配记录存储。
type MatchStore interface {
	InsertMatch(ctx context.Context, m *model.Match) error
	CountDistinctAcceptableCandidates(ctx context.Context, postingIDs []string, threshold float64, excludeRunID string) (int64, error)
	AcceptablePairs(ctx context.Context, postingIDs []string, threshold float64, excludeRunID string) ([]model.PairKey, error)
	DeleteMatchesByRunIDs(ctx context.Context, runIDs []string) (int64, error)
}

// RunStore 批次存储。
type RunStore interface {
	CreateRun(ctx context.Context, isFullRun bool) (model.MatchingRun, error)
	FindRunsOlderThan(ctx context.Context, cutoff time.Time) ([]model.MatchingRun, error)
	DeleteRunsByIDs(ctx context.Context, ids []string) (int64, error)
}

// Sink 通知出口，投递保证由实现负责。
type Sink interface {
	Notify(ctx context.Context, userID string, payload model.NotificationPayload) error
}

// Recorder 运行指标。
type Recorder interface {
	RunFinished(kind string, elapsed time.Duration, err error)
	MatchesCreated(n int)
	NotificationSent()
	RunsPruned(n int64)
}

// Deps 引擎依赖。
type Deps struct {
	Candidates CandidateRepository
	Postings   PostingRepository
	Reference  ReferenceData
	Matches    MatchStore
	Runs       RunStore
	Sink       Sink
	Geocoder   scoring.Geocoder
	Metrics    Recorder
}

// Request 单次匹配的范围，两个字段均为空时为全量批次。
type Request struct {
	JobPostingID string `json:"jobPostingId,omitempty"`
	CandidateID  string `json:"candidateId,omitempty"`
}

// IsFullRun 是否未限定职位与候选人。
func (r Request) IsFullRun() bool {
	return r.JobPostingID == "" && r.CandidateID == ""
}

func (r Request) kind() string {
	switch {
	case r.IsFullRun():
		return "full"
	case r.JobPostingID != "":
		return "posting"
	default:
		return "candidate"
	}
}

// Result 单次匹配的统计结果。
type Result struct {
	Run           model.MatchingRun `json:"run"`
	Postings      int               `json:"postings"`
	Matches       int               `json:"matches"`
	Notifications int               `json:"notifications"`
	PrunedRuns    int64             `json:"prunedRuns"`
}

// Engine 匹配批次编排：选取职位、筛选打分、写入记录、通知公司并清理历史。
type Engine struct {
	postings  PostingRepository
	reference ReferenceData
	matches   MatchStore
	runs      RunStore
	sink      Sink
	geocoder  scoring.Geocoder
	selector  *Selector
	metrics   Recorder
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine 创建 Engine。
func NewEngine(deps Deps, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Engine{
		postings:  deps.Postings,
		reference: deps.Reference,
		matches:   deps.Matches,
		runs:      deps.Runs,
		sink:      deps.Sink,
		geocoder:  deps.Geocoder,
		selector:  NewSelector(deps.Candidates),
		metrics:   metrics,
		cfg:       cfg.WithDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// Config 返回生效的配置。
func (e *Engine) Config() Config {
	return e.cfg
}

// RunMatching 执行一次匹配批次。写入失败会中止整个批次，已写入的记录保留。
func (e *Engine) RunMatching(ctx context.Context, req Request) (Result, error) {
	start := e.now()
	res, err := e.runMatching(ctx, req)
	e.metrics.RunFinished(req.kind(), e.now().Sub(start), err)
	if err != nil {
		e.logger.Error("matching run failed",
			zap.String("run_id", res.Run.ID),
			zap.String("posting_id", req.JobPostingID),
			zap.String("candidate_id", req.CandidateID),
			zap.Error(err))
		return res, err
	}
	e.logger.Info("matching run finished",
		zap.String("run_id", res.Run.ID),
		zap.Bool("full_run", res.Run.IsFullRun),
		zap.Int("postings", res.Postings),
		zap.Int("matches", res.Matches),
		zap.Int("notifications", res.Notifications),
		zap.Duration("elapsed", e.now().Sub(start)))
	return res, nil
}

func (e *Engine) runMatching(ctx context.Context, req Request) (Result, error) {
	res := Result{}

	targets := []string{req.JobPostingID}
	if req.JobPostingID == "" {
		ids, err := e.postings.FindUnfilledIDs(ctx)
		if err != nil {
			return res, fmt.Errorf("list unfilled postings: %w", err)
		}
		targets = ids
	}

	levels, err := e.reference.ListProficiencyLevels(ctx)
	if err != nil {
		return res, fmt.Errorf("load proficiency levels: %w", err)
	}
	scorer := scoring.NewScorer(scoring.NewOrdering(levels), e.geocoder)

	run, err := e.runs.CreateRun(ctx, req.IsFullRun())
	if err != nil {
		return res, fmt.Errorf("create run: %w", err)
	}
	res.Run = run

	var postings, created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, id := range targets {
		id := id
		g.Go(func() error {
			n, found, err := e.matchPosting(gctx, run, id, req.CandidateID, scorer)
			created.Add(int64(n))
			if found {
				postings.Add(1)
			}
			return err
		})
	}
	err = g.Wait()
	res.Postings = int(postings.Load())
	res.Matches = int(created.Load())
	e.metrics.MatchesCreated(res.Matches)
	if err != nil {
		return res, err
	}

	res.Notifications, err = e.notifyStartups(ctx, run, targets, req.JobPostingID)
	if err != nil {
		return res, err
	}

	res.PrunedRuns, err = e.Cleanup(ctx)
	if err != nil {
		return res, err
	}
	return res, nil
}

// matchPosting 为单个职位打分并写入记录；职位已被删除时跳过。
func (e *Engine) matchPosting(ctx context.Context, run model.MatchingRun, postingID, candidateID string, scorer *scoring.Scorer) (int, bool, error) {
	posting, err := e.postings.FindPosting(ctx, postingID)
	if errors.Is(err, sql.ErrNoRows) {
		e.logger.Debug("posting vanished, skipping", zap.String("run_id", run.ID), zap.String("posting_id", postingID))
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load posting %s: %w", postingID, err)
	}

	candidates, err := e.selector.Select(ctx, posting, candidateID)
	if err != nil {
		return 0, true, err
	}

	created := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return created, true, err
		}
		result := scorer.Score(ctx, c, posting)
		m := &model.Match{
			MatchingRunID: run.ID,
			JobPostingID:  posting.ID,
			CandidateID:   c.ID,
			Score:         result.Score,
		}
		if err := e.matches.InsertMatch(ctx, m); err != nil {
			return created, true, fmt.Errorf("insert match: %w", err)
		}
		created++
	}
	return created, true, nil
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(string, time.Duration, error) {}
func (nopRecorder) MatchesCreated(int)                       {}
func (nopRecorder) NotificationSent()                        {}
func (nopRecorder) RunsPruned(int64)                         {}
