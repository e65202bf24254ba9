package llm

import _ "embed"

const matchSystemPrompt = "You are a career coach assessing a resume against a job description."

//go:embed prompts/match_rubric.txt
var matchRubric string

// MatchRubric returns the fixed instruction block appended to every match prompt.
func MatchRubric() string {
	return matchRubric
}

// BuildMatchPrompt returns the four-message conversation for a resume/job comparison.
// Inputs are embedded verbatim; callers are expected to have validated them.
func BuildMatchPrompt(resumeText, jobDescription string) []Message {
	return []Message{
		{Role: RoleSystem, Content: matchSystemPrompt},
		{Role: RoleUser, Content: "Job Description: " + jobDescription},
		{Role: RoleUser, Content: "Resume: " + resumeText},
		{Role: RoleUser, Content: matchRubric},
	}
}
