package trigger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"retiree-match/internal/matching"
	"retiree-match/internal/model"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// 变更事件类型。
const (
	EventPostingCreated   = "posting.created"
	EventPostingUpdated   = "posting.updated"
	EventCandidateUpdated = "candidate.updated"
)

var (
	// ErrInvalidMessage 消息不符合 schema，不应重试。
	ErrInvalidMessage = errors.New("invalid trigger message")
	// ErrUnknownCandidate 事件引用的候选人不存在。
	ErrUnknownCandidate = errors.New("unknown candidate")
)

const messageSchema = `{
  "type": "object",
  "required": ["event"],
  "oneOf": [
    {
      "properties": {
        "event": {"enum": ["posting.created", "posting.updated"]},
        "jobPostingId": {"type": "string", "minLength": 1}
      },
      "required": ["jobPostingId"]
    },
    {
      "properties": {
        "event": {"enum": ["candidate.updated"]},
        "candidateId": {"type": "string", "minLength": 1}
      },
      "required": ["candidateId"]
    }
  ]
}`

var schemaLoader = gojsonschema.NewStringLoader(messageSchema)

// Event 变更事件消息体。
type Event struct {
	Event        string    `json:"event"`
	JobPostingID string    `json:"jobPostingId,omitempty"`
	CandidateID  string    `json:"candidateId,omitempty"`
	OccurredAt   time.Time `json:"occurredAt,omitempty"`
}

// Request 事件对应的匹配范围。
func (e Event) Request() matching.Request {
	if e.Event == EventCandidateUpdated {
		return matching.Request{CandidateID: e.CandidateID}
	}
	return matching.Request{JobPostingID: e.JobPostingID}
}

// Runner 执行一次匹配批次。
type Runner interface {
	RunMatching(ctx context.Context, req matching.Request) (matching.Result, error)
}

// CandidateLookup 校验候选人是否存在。
type CandidateLookup interface {
	FindCandidate(ctx context.Context, id string) (model.Candidate, error)
}

// Recorder 触发来源指标。
type Recorder interface {
	Trigger(source string)
}

// Handler 解析变更事件并触发对应范围的匹配。
type Handler struct {
	runner     Runner
	candidates CandidateLookup
	metrics    Recorder
	logger     *zap.Logger
}

// NewHandler 创建 Handler；candidates 为空时不预先校验候选人。
func NewHandler(r Runner, candidates CandidateLookup, metrics Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: r, candidates: candidates, metrics: metrics, logger: logger}
}

// Decode 校验并解析消息体。
func Decode(body []byte) (Event, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return Event{}, fmt.Errorf("%w: %s", ErrInvalidMessage, strings.Join(errs, "; "))
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return ev, nil
}

// Handle 处理一条消息。
func (h *Handler) Handle(ctx context.Context, body []byte) (matching.Result, error) {
	ev, err := Decode(body)
	if err != nil {
		return matching.Result{}, err
	}
	if h.metrics != nil {
		h.metrics.Trigger(ev.Event)
	}

	if ev.Event == EventCandidateUpdated && h.candidates != nil {
		if _, err := h.candidates.FindCandidate(ctx, ev.CandidateID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return matching.Result{}, fmt.Errorf("%w: %s", ErrUnknownCandidate, ev.CandidateID)
			}
			return matching.Result{}, fmt.Errorf("find candidate: %w", err)
		}
	}

	res, err := h.runner.RunMatching(ctx, ev.Request())
	if err != nil {
		return res, fmt.Errorf("run matching for %s: %w", ev.Event, err)
	}
	h.logger.Info("event matching run done",
		zap.String("event", ev.Event),
		zap.String("run_id", res.Run.ID),
		zap.Int("matches", res.Matches))
	return res, nil
}
