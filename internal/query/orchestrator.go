// Package query wires the natural-language query pipeline together:
// classification, cache lookup, aggregation, and response composition.
package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/paper-trail/internal/cache"
	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/compose"
	"github.com/Veraticus/paper-trail/internal/executor"
	"github.com/Veraticus/paper-trail/internal/intent"
	"github.com/Veraticus/paper-trail/internal/model"
)

// Response is the pair returned for every query: a composed sentence
// plus the raw structured result for downstream consumers.
type Response struct {
	Message string                `json:"message"`
	Data    model.AggregateResult `json:"data"`
}

// Orchestrator drives a query through the full pipeline. Every code
// path produces a Response; no error escapes to the caller.
type Orchestrator struct {
	classifier *intent.Classifier
	executor   *executor.Executor
	cache      *cache.ResultCache
}

// New creates an orchestrator. The cache may be nil, in which case
// every query executes directly.
func New(classifier *intent.Classifier, exec *executor.Executor, resultCache *cache.ResultCache) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		executor:   exec,
		cache:      resultCache,
	}
}

// HandleQuery answers a free-text spending question for a user. Empty
// input gets a fixed clarifying response; store failures get a fixed
// unavailability response with an error marker in the data; failures
// are never cached.
func (o *Orchestrator) HandleQuery(ctx context.Context, rawText, userID string) Response {
	q := model.Query{
		RawText:    rawText,
		UserID:     userID,
		ReceivedAt: time.Now(),
	}

	if strings.TrimSpace(q.RawText) == "" {
		return Response{
			Message: compose.InvalidInputMessage,
			Data:    model.AggregateResult{Err: errorMarker(common.ErrInvalidInput)},
		}
	}

	resolved := o.classifier.Classify(q.RawText)
	fingerprint := resolved.Fingerprint(q.UserID)

	result, err := o.lookupOrExecute(ctx, fingerprint, q.UserID, resolved)
	if err != nil {
		common.LogError(err, "Query failed", common.Fields{
			"user_id": q.UserID,
			"kind":    string(resolved.Kind),
		})
		return Response{
			Message: compose.DataUnavailableMessage,
			Data:    model.AggregateResult{Kind: resolved.Kind, Err: errorMarker(err)},
		}
	}

	slog.Debug("Query answered",
		"user_id", q.UserID,
		"kind", resolved.Kind,
		"duration", time.Since(q.ReceivedAt))

	return Response{
		Message: compose.Compose(resolved, result),
		Data:    result,
	}
}

// lookupOrExecute consults the cache before executing. A nil or closed
// cache degrades to direct execution rather than failing the request.
func (o *Orchestrator) lookupOrExecute(ctx context.Context, fingerprint, userID string, resolved model.ResolvedIntent) (model.AggregateResult, error) {
	if o.cache == nil {
		return o.executor.Execute(ctx, userID, resolved)
	}

	result, err := o.cache.GetOrCompute(ctx, fingerprint, userID, func(ctx context.Context) (model.AggregateResult, error) {
		return o.executor.Execute(ctx, userID, resolved)
	})
	if errors.Is(err, common.ErrCacheUnavailable) {
		slog.Warn("Result cache unavailable, executing directly",
			"user_id", userID,
			"kind", resolved.Kind)
		return o.executor.Execute(ctx, userID, resolved)
	}
	return result, err
}

// errorMarker maps a pipeline failure onto its taxonomy name for the
// Response data payload.
func errorMarker(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, common.ErrCacheUnavailable):
		return "CacheUnavailable"
	default:
		return "DataUnavailable"
	}
}
