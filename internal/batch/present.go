package batch

// Feedback is the serialized form of a batch result.
type Feedback struct {
	Feedback []FeedbackItem `json:"feedback"`
}

type FeedbackItem struct {
	FileName string `json:"filename"`
	Feedback any    `json:"feedback"`
}

type successBody struct {
	Analysis        string   `json:"Analysis"`
	ExtractedSkills []string `json:"ExtractedSkills,omitempty"`
}

type failureBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Present shapes res for JSON output. Skills are included only when includeSkills is set.
func Present(res Result, includeSkills bool) Feedback {
	out := Feedback{Feedback: make([]FeedbackItem, 0, len(res.Items))}
	for _, item := range res.Items {
		fi := FeedbackItem{FileName: item.FileName}
		switch {
		case item.Result.Success != nil:
			body := successBody{Analysis: item.Result.Success.Analysis}
			if includeSkills {
				body.ExtractedSkills = item.Result.Success.ExtractedSkills
			}
			fi.Feedback = body
		case item.Result.Failure != nil:
			fi.Feedback = failureBody{
				Error:   item.Result.Failure.Message,
				Details: item.Result.Failure.Details,
			}
		}
		out.Feedback = append(out.Feedback, fi)
	}
	return out
}
