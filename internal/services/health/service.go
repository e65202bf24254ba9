package health

import (
	"context"

	"resume-matcher/internal/budget"
)

// Service reports liveness and the configured analysis backend.
type Service struct {
	Provider string
	Model    string
	// Ledger is set only when the budget outlives a batch; its usage is then reported.
	Ledger budget.Ledger
}

// NewService constructs a new health service.
func NewService(provider, model string, ledger budget.Ledger) *Service {
	return &Service{Provider: provider, Model: model, Ledger: ledger}
}

// Status returns the health payload. A ledger read failure is reported, not fatal.
func (s *Service) Status(ctx context.Context) map[string]any {
	out := map[string]any{"ok": true}
	if s == nil {
		return out
	}
	if s.Provider != "" {
		out["provider"] = s.Provider
	}
	if s.Model != "" {
		out["model"] = s.Model
	}
	if s.Ledger != nil {
		usage, err := s.Ledger.Snapshot(ctx)
		if err != nil {
			out["budget"] = map[string]any{"error": err.Error()}
		} else {
			out["budget"] = map[string]any{
				"consumed":  usage.Consumed,
				"reserved":  usage.Reserved,
				"limit":     usage.Limit,
				"exhausted": !usage.Remaining(),
			}
		}
	}
	return out
}
