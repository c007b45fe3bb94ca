package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"retiree-match/internal/matching"
	"retiree-match/internal/model"
)

// Store 抽象查询接口。
type Store interface {
	LatestMatches(ctx context.Context, postingIDs []string) ([]model.Match, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
}

// Scheduler 抽象手动触发接口。
type Scheduler interface {
	RunOnce(ctx context.Context, req matching.Request) (matching.Result, error)
}

// Recorder 记录触发来源。
type Recorder interface {
	Trigger(source string)
}

// testRunRequest 兼容旧的测试触发入口。
type testRunRequest struct {
	MatchingRunRequest matching.Request `json:"matchingRunRequest"`
}

// NewHandler 构造 HTTP 多路复用器，metrics 为空时不暴露 /metrics。
func NewHandler(store Store, sched Scheduler, metrics http.Handler, rec Recorder) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	run := func(w http.ResponseWriter, r *http.Request, source string, req matching.Request) {
		if rec != nil {
			rec.Trigger(source)
		}
		res, err := sched.RunOnce(r.Context(), req)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}

	mux.HandleFunc("/api/matching/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req matching.Request
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		run(w, r, "http", req)
	})

	mux.HandleFunc("/test-run-matching", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body testRunRequest
		if err := decodeBody(r, &body); err != nil || body.MatchingRunRequest.JobPostingID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "matchingRunRequest.jobPostingId required"})
			return
		}
		run(w, r, "http", matching.Request{JobPostingID: body.MatchingRunRequest.JobPostingID})
	})

	mux.HandleFunc("/api/matches", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ids := splitIDs(r.URL.Query()["jobPostingId"])
		if len(ids) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "jobPostingId required"})
			return
		}
		matches, err := store.LatestMatches(r.Context(), ids)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if matches == nil {
			matches = []model.Match{}
		}
		writeJSON(w, http.StatusOK, matches)
	})

	mux.HandleFunc("/api/notifications", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId required"})
			return
		}
		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 {
				if v > 200 {
					v = 200
				}
				limit = v
			}
		}
		list, err := store.ListNotifications(r.Context(), userID, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if list == nil {
			list = []model.Notification{}
		}
		writeJSON(w, http.StatusOK, list)
	})

	return mux
}

// decodeBody 允许空请求体。
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func splitIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
