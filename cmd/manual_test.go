package main

import (
	"context"
	"errors"
	"testing"

	"retiree-match/internal/matching"
	"retiree-match/internal/model"
)

func TestRunOnceManual(t *testing.T) {
	t.Parallel()

	stub := &stubScheduler{res: matching.Result{Run: model.MatchingRun{ID: "r1"}, Matches: 3}}
	builds := 0
	cleaned := 0

	res, err := runOnceManual(context.Background(), AppConfig{}, matching.Request{JobPostingID: "p1"}, func(AppConfig) (appDeps, func(), error) {
		builds++
		return appDeps{sched: stub}, func() { cleaned++ }, nil
	})
	if err != nil {
		t.Fatalf("runOnceManual error: %v", err)
	}
	if res.Matches != 3 {
		t.Fatalf("expected matches=3, got %d", res.Matches)
	}
	if builds != 1 || cleaned != 1 {
		t.Fatalf("expected one build and one cleanup, got %d/%d", builds, cleaned)
	}
	if len(stub.reqs) != 1 || stub.reqs[0].JobPostingID != "p1" {
		t.Fatalf("expected scoped RunOnce, got %+v", stub.reqs)
	}
}

func TestRunOnceManualBuilderError(t *testing.T) {
	t.Parallel()

	_, err := runOnceManual(context.Background(), AppConfig{}, matching.Request{}, func(AppConfig) (appDeps, func(), error) {
		return appDeps{}, func() {}, errors.New("build fail")
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestBuildAppWithSQLite(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	cfg.Database.DSN = t.TempDir() + "/matching.db"

	res, err := runOnceManual(context.Background(), cfg, matching.Request{}, buildApp)
	if err != nil {
		t.Fatalf("runOnceManual error: %v", err)
	}
	if !res.Run.IsFullRun || res.Matches != 0 {
		t.Fatalf("unexpected result on empty database: %+v", res)
	}
}

// --- stubs ---

type stubScheduler struct {
	res  matching.Result
	reqs []matching.Request
}

func (s *stubScheduler) RunOnce(ctx context.Context, req matching.Request) (matching.Result, error) {
	s.reqs = append(s.reqs, req)
	return s.res, nil
}

func (s *stubScheduler) Start(context.Context) error {
	return nil
}
