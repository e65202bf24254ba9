package analyzer

import "resume-matcher/internal/shared/apperr"

// Result is the outcome for one document. Exactly one of Success and Failure is set.
type Result struct {
	Success *Success
	Failure *Failure
}

// Success carries the provider's free-form assessment and the skills found in the resume.
type Success struct {
	Analysis        string
	ExtractedSkills []string
}

// Failure describes why a document produced no analysis. Message is the user-facing headline
// for Kind; Details is the underlying error text.
type Failure struct {
	Kind    apperr.Kind
	Message string
	Details string
}

func (r Result) OK() bool { return r.Success != nil }

// Succeeded builds a success result.
func Succeeded(analysis string, skills []string) Result {
	if skills == nil {
		skills = []string{}
	}
	return Result{Success: &Success{Analysis: analysis, ExtractedSkills: skills}}
}

// Failed classifies err into a failure result.
func Failed(err error) Result {
	kind := apperr.KindOf(err)
	f := &Failure{Kind: kind, Message: apperr.Headline(kind)}
	if err != nil {
		f.Details = err.Error()
	}
	return Result{Failure: f}
}
