package analyzer

import (
	"context"
	"errors"
	"strings"
	"time"

	"resume-matcher/internal/budget"
	"resume-matcher/internal/documents"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/llm"
	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/metrics"
	"resume-matcher/internal/shared/telemetry"
	"resume-matcher/internal/skills"
)

// Sampling holds the generation parameters sent with every call.
type Sampling struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// DefaultSampling returns temperature 0.7, 2000 max tokens and top-p 1.
func DefaultSampling() Sampling {
	return Sampling{
		Temperature: llm.DefaultTemperature,
		MaxTokens:   llm.DefaultMaxTokens,
		TopP:        llm.DefaultTopP,
	}
}

// Options configures an Analyzer. Client is required; the rest have defaults.
type Options struct {
	Client   llm.Client
	Ledger   budget.Ledger
	Skills   skills.Extractor
	Model    string
	Sampling Sampling
}

// Analyzer compares one resume with one job description through the reasoning service,
// charging its ledger only for calls that succeed.
type Analyzer struct {
	client   llm.Client
	ledger   budget.Ledger
	skills   skills.Extractor
	model    string
	sampling Sampling
}

// New validates opts. A missing client is a configuration error.
func New(opts Options) (*Analyzer, error) {
	if opts.Client == nil {
		return nil, apperr.Configuration("reasoning service client is not configured")
	}
	a := &Analyzer{
		client:   opts.Client,
		ledger:   opts.Ledger,
		skills:   opts.Skills,
		model:    strings.TrimSpace(opts.Model),
		sampling: opts.Sampling,
	}
	if a.ledger == nil {
		a.ledger = budget.NewTracker(budget.DefaultLimit)
	}
	if a.skills == nil {
		a.skills = skills.NewIndicatorExtractor()
	}
	if a.model == "" {
		a.model = llm.DefaultModel
	}
	if a.sampling == (Sampling{}) {
		a.sampling = DefaultSampling()
	}
	return a, nil
}

func (a *Analyzer) Ledger() budget.Ledger { return a.ledger }

func (a *Analyzer) Model() string { return a.model }

// Analyze runs one assessment. Validation and budget checks happen before the external call;
// a failed call releases its reservation so the ledger is unchanged.
func (a *Analyzer) Analyze(ctx context.Context, resumeText, jobDescription string) Result {
	if strings.TrimSpace(resumeText) == "" {
		return Failed(apperr.Validation("resume text cannot be empty"))
	}
	if strings.TrimSpace(jobDescription) == "" {
		return Failed(apperr.Validation("job description cannot be empty"))
	}

	cost := budget.Cost(resumeText, jobDescription)
	reservation, err := a.ledger.Reserve(ctx, cost)
	if err != nil {
		if errors.Is(err, apperr.ErrBudgetExceeded) {
			metrics.IncBudgetRejected()
			telemetry.Warn("analysis.budget_exhausted", map[string]any{
				"request_id": RequestIDFromContext(ctx),
				"cost":       cost,
				"err":        err,
			})
		} else {
			telemetry.Error("analysis.budget_unavailable", map[string]any{
				"request_id": RequestIDFromContext(ctx),
				"err":        err,
			})
		}
		return Failed(err)
	}

	messages := llm.BuildMatchPrompt(resumeText, jobDescription)
	startedAt := time.Now()
	text, err := a.client.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Model:       a.model,
		Temperature: a.sampling.Temperature,
		MaxTokens:   a.sampling.MaxTokens,
		TopP:        a.sampling.TopP,
	})
	durationMs := metrics.SinceMillis(startedAt)
	metrics.ObserveLLMCall(durationMs, err != nil)

	settleCtx := context.WithoutCancel(ctx)
	if err != nil {
		if relErr := reservation.Release(settleCtx); relErr != nil {
			telemetry.Error("analysis.budget_release_failed", map[string]any{
				"request_id": RequestIDFromContext(ctx),
				"err":        relErr,
			})
		}
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.ExternalService("reasoning service call failed", err)
		}
		telemetry.Info("analysis.status", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"status":      "failed",
			"model":       a.model,
			"error_kind":  string(apperr.KindOf(err)),
			"duration_ms": durationMs,
		})
		return Failed(err)
	}

	if commitErr := reservation.Commit(settleCtx); commitErr != nil {
		telemetry.Error("analysis.budget_commit_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"cost":       cost,
			"err":        commitErr,
		})
	}

	found := a.skills.Extract(resumeText)
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  RequestIDFromContext(ctx),
		"status":      "completed",
		"model":       a.model,
		"prompt_hash": llm.PromptHash(messages),
		"cost":        cost,
		"skills":      found.Len(),
		"duration_ms": durationMs,
	})
	return Succeeded(text, found.Sorted())
}

// AnalyzeDocument extracts doc's text with ex and analyzes it. Extraction failures become
// ExtractionError results without calling the reasoning service.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, ex extract.Extractor, doc documents.Document, jobDescription string) Result {
	text, err := ex.Extract(ctx, doc.Content)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Extraction("extract "+doc.FileName, err)
		}
		return Failed(err)
	}
	if strings.TrimSpace(text) == "" {
		return Failed(apperr.Extraction(doc.FileName+" contains no extractable text", nil))
	}
	return a.Analyze(ctx, text, jobDescription)
}
