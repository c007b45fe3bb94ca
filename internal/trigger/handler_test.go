package trigger

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"retiree-match/internal/matching"
	"retiree-match/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDecodeValidatesMessages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		body  string
		valid bool
	}{
		{"posting created", `{"event":"posting.created","jobPostingId":"p1"}`, true},
		{"posting updated", `{"event":"posting.updated","jobPostingId":"p1","occurredAt":"2024-01-01T00:00:00Z"}`, true},
		{"candidate updated", `{"event":"candidate.updated","candidateId":"c1"}`, true},
		{"posting without id", `{"event":"posting.created"}`, false},
		{"posting with candidate only", `{"event":"posting.updated","candidateId":"c1"}`, false},
		{"empty id", `{"event":"candidate.updated","candidateId":""}`, false},
		{"unknown event", `{"event":"posting.deleted","jobPostingId":"p1"}`, false},
		{"not json", `posting.created`, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(tc.body))
			if tc.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestHandleScopesRequest(t *testing.T) {
	t.Parallel()

	r := &stubRunner{}
	rec := &stubRecorder{}
	h := NewHandler(r, &stubCandidates{known: map[string]bool{"c1": true}}, rec, zaptest.NewLogger(t))

	_, err := h.Handle(context.Background(), []byte(`{"event":"posting.updated","jobPostingId":"p1"}`))
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), []byte(`{"event":"candidate.updated","candidateId":"c1"}`))
	require.NoError(t, err)

	require.Len(t, r.reqs, 2)
	assert.Equal(t, matching.Request{JobPostingID: "p1"}, r.reqs[0])
	assert.Equal(t, matching.Request{CandidateID: "c1"}, r.reqs[1])
	assert.Equal(t, []string{EventPostingUpdated, EventCandidateUpdated}, rec.sources)
}

func TestHandleDropsUnknownCandidate(t *testing.T) {
	t.Parallel()

	r := &stubRunner{}
	h := NewHandler(r, &stubCandidates{}, nil, nil)

	_, err := h.Handle(context.Background(), []byte(`{"event":"candidate.updated","candidateId":"ghost"}`))
	require.ErrorIs(t, err, ErrUnknownCandidate)
	assert.Empty(t, r.reqs)
}

func TestHandleWrapsRunError(t *testing.T) {
	t.Parallel()

	boom := errors.New("insert match: locked")
	h := NewHandler(&stubRunner{err: boom}, nil, nil, nil)

	_, err := h.Handle(context.Background(), []byte(`{"event":"posting.created","jobPostingId":"p1"}`))
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidMessage)
}

func TestConsumerProcessDecisions(t *testing.T) {
	t.Parallel()

	ok := NewConsumer(Config{}, NewHandler(&stubRunner{}, nil, nil, nil), zaptest.NewLogger(t))
	ack, _ := ok.process(context.Background(), []byte(`{"event":"posting.created","jobPostingId":"p1"}`), false)
	assert.True(t, ack)

	ack, requeue := ok.process(context.Background(), []byte(`{}`), false)
	assert.False(t, ack)
	assert.False(t, requeue)

	failing := NewConsumer(Config{}, NewHandler(&stubRunner{err: errors.New("db down")}, nil, nil, nil), zaptest.NewLogger(t))
	ack, requeue = failing.process(context.Background(), []byte(`{"event":"posting.created","jobPostingId":"p1"}`), false)
	assert.False(t, ack)
	assert.True(t, requeue)

	_, requeue = failing.process(context.Background(), []byte(`{"event":"posting.created","jobPostingId":"p1"}`), true)
	assert.False(t, requeue)
}

func TestNewConsumerDefaults(t *testing.T) {
	t.Parallel()

	c := NewConsumer(Config{URL: "amqp://localhost"}, nil, nil)
	assert.Equal(t, "matching.triggers", c.cfg.Queue)
	assert.Equal(t, 1, c.cfg.Prefetch)
}

// --- stubs ---

type stubRunner struct {
	reqs []matching.Request
	err  error
}

func (s *stubRunner) RunMatching(ctx context.Context, req matching.Request) (matching.Result, error) {
	s.reqs = append(s.reqs, req)
	return matching.Result{Run: model.MatchingRun{ID: "run-1"}}, s.err
}

type stubCandidates struct {
	known map[string]bool
}

func (s *stubCandidates) FindCandidate(ctx context.Context, id string) (model.Candidate, error) {
	if !s.known[id] {
		return model.Candidate{}, sql.ErrNoRows
	}
	return model.Candidate{ID: id}, nil
}

type stubRecorder struct {
	sources []string
}

func (s *stubRecorder) Trigger(source string) {
	s.sources = append(s.sources, source)
}
