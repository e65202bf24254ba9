package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"resume-matcher/internal/analyzer"
	"resume-matcher/internal/budget"
	"resume-matcher/internal/documents"
	"resume-matcher/internal/events"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/shared/apperr"
	"resume-matcher/internal/shared/metrics"
	"resume-matcher/internal/shared/telemetry"
	"resume-matcher/internal/shared/util"
)

const (
	DefaultMaxDocuments = 3
	MaxConcurrency      = 3
)

const (
	msgNoDocuments = "No resume files uploaded."
	msgTooMany     = "Maximum %d resumes allowed."
	msgNoJD        = "Job description is required."
)

// Item is the outcome for one submitted document.
type Item struct {
	Index    int
	FileName string
	Result   analyzer.Result
}

// Result holds one Item per submitted document, in submission order.
type Result struct {
	BatchID   string
	Items     []Item
	Succeeded int
	Failed    int
}

// Coordinator drives a bounded batch of documents through extraction and analysis.
// A failure in one document is recorded on its Item and never aborts the others.
type Coordinator struct {
	Extractors *extract.Registry
	// Analysis is copied per batch; its Ledger is replaced by the one Budget resolves.
	Analysis analyzer.Options
	Budget   budget.LedgerFactory
	Events   events.Publisher
	// MaxDocuments lowers the per-batch limit; values outside 1..DefaultMaxDocuments use the default.
	MaxDocuments int
	// Concurrency bounds parallel documents. Values below 1 mean sequential.
	Concurrency int

	now func() time.Time
}

// maxDocuments may lower the batch limit but never raise it above DefaultMaxDocuments.
func (c *Coordinator) maxDocuments() int {
	if c.MaxDocuments <= 0 || c.MaxDocuments > DefaultMaxDocuments {
		return DefaultMaxDocuments
	}
	return c.MaxDocuments
}

func (c *Coordinator) concurrency(n int) int {
	limit := c.Concurrency
	if limit < 1 {
		limit = 1
	}
	if limit > MaxConcurrency {
		limit = MaxConcurrency
	}
	if limit > n {
		limit = n
	}
	return limit
}

func (c *Coordinator) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Validate applies the batch preconditions in order: at least one document, at most
// MaxDocuments, and a non-blank job description.
func (c *Coordinator) Validate(count int, jobDescription string) error {
	switch {
	case count == 0:
		return apperr.Validation(msgNoDocuments)
	case count > c.maxDocuments():
		return apperr.Validationf(msgTooMany, c.maxDocuments())
	case strings.TrimSpace(jobDescription) == "":
		return apperr.Validation(msgNoJD)
	}
	return nil
}

// Run validates the batch and analyzes every document. The returned error is non-nil only
// for batch-level failures, in which case no document was processed.
func (c *Coordinator) Run(ctx context.Context, docs []documents.Document, jobDescription string) (Result, error) {
	if err := c.Validate(len(docs), jobDescription); err != nil {
		metrics.IncBatchRejected()
		telemetry.Warn("batch.rejected", map[string]any{
			"request_id": analyzer.RequestIDFromContext(ctx),
			"documents":  len(docs),
			"err":        err,
		})
		return Result{}, err
	}
	if c.Extractors == nil {
		return Result{}, apperr.Configuration("document extractors are not configured")
	}
	if c.Budget == nil {
		return Result{}, apperr.Configuration("token budget is not configured")
	}

	ledger, err := c.Budget.LedgerFor(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("resolve budget ledger: %w", err)
	}
	opts := c.Analysis
	opts.Ledger = ledger
	an, err := analyzer.New(opts)
	if err != nil {
		return Result{}, err
	}

	startedAt := c.clock()
	res := Result{BatchID: uuid.NewString(), Items: make([]Item, len(docs))}
	metrics.IncBatchStarted()
	jdHash := util.HashKey(jobDescription)
	telemetry.Info("batch.started", map[string]any{
		"request_id":  analyzer.RequestIDFromContext(ctx),
		"batch_id":    res.BatchID,
		"documents":   len(docs),
		"concurrency": c.concurrency(len(docs)),
		"jd_hash":     jdHash,
	})

	var g errgroup.Group
	g.SetLimit(c.concurrency(len(docs)))
	for i, doc := range docs {
		g.Go(func() error {
			res.Items[i] = c.process(ctx, an, i, doc, jobDescription)
			c.publish(ctx, events.Event{
				Type:      events.TypeItemCompleted,
				BatchID:   res.BatchID,
				RequestID: analyzer.RequestIDFromContext(ctx),
				JDHash:    jdHash,
				Index:     i,
				FileName:  doc.FileName,
				Status:    itemStatus(res.Items[i].Result),
				ErrorKind: errorKind(res.Items[i].Result),
			})
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range res.Items {
		if item.Result.OK() {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	elapsed := c.clock().Sub(startedAt)
	metrics.ObserveBatchDurationMs(float64(elapsed.Microseconds()) / 1000.0)
	c.publish(ctx, events.Event{
		Type:      events.TypeBatchCompleted,
		BatchID:   res.BatchID,
		RequestID: analyzer.RequestIDFromContext(ctx),
		JDHash:    jdHash,
		Total:     len(res.Items),
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		ElapsedMs: elapsed.Milliseconds(),
	})
	telemetry.Info("batch.completed", map[string]any{
		"request_id":  analyzer.RequestIDFromContext(ctx),
		"batch_id":    res.BatchID,
		"succeeded":   res.Succeeded,
		"failed":      res.Failed,
		"duration_ms": elapsed.Milliseconds(),
	})
	return res, nil
}

func (c *Coordinator) process(ctx context.Context, an *analyzer.Analyzer, index int, doc documents.Document, jobDescription string) (item Item) {
	item = Item{Index: index, FileName: doc.FileName}
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("batch.document_panic", map[string]any{
				"request_id": analyzer.RequestIDFromContext(ctx),
				"file":       doc.FileName,
				"error":      rec,
				"stack":      string(debug.Stack()),
			})
			item.Result = analyzer.Failed(fmt.Errorf("panic processing %s: %v", doc.FileName, rec))
		}
		c.record(ctx, item)
	}()

	if doc.Err != nil {
		item.Result = analyzer.Failed(doc.Err)
		return item
	}
	ex, ok := c.Extractors.For(doc.FileName)
	if !ok {
		item.Result = analyzer.Failed(apperr.Validationf("unsupported file type %q; allowed: %s",
			filepath.Ext(doc.FileName), strings.Join(c.Extractors.Extensions(), ", ")))
		return item
	}
	item.Result = an.AnalyzeDocument(ctx, ex, doc, jobDescription)
	return item
}

func (c *Coordinator) record(ctx context.Context, item Item) {
	if item.Result.OK() {
		metrics.IncDocumentSucceeded()
		return
	}
	metrics.IncDocumentFailed(string(item.Result.Failure.Kind))
	telemetry.Warn("batch.document_failed", map[string]any{
		"request_id": analyzer.RequestIDFromContext(ctx),
		"file":       item.FileName,
		"error_kind": string(item.Result.Failure.Kind),
		"details":    item.Result.Failure.Details,
	})
}

func (c *Coordinator) publish(ctx context.Context, e events.Event) {
	if c.Events == nil {
		return
	}
	if err := c.Events.Publish(ctx, e.Stamp(c.clock())); err != nil {
		telemetry.Warn("batch.event_publish_failed", map[string]any{
			"batch_id": e.BatchID,
			"type":     string(e.Type),
			"err":      err,
		})
	}
}

func itemStatus(r analyzer.Result) string {
	if r.OK() {
		return "completed"
	}
	return "failed"
}

func errorKind(r analyzer.Result) string {
	if r.Failure == nil {
		return ""
	}
	return string(r.Failure.Kind)
}
