package llm

import (
	"strings"
	"testing"
)

func TestBuildMatchPromptOrder(t *testing.T) {
	msgs := BuildMatchPrompt("Go developer, 5 years", "Senior Go engineer")
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	wantRoles := []string{RoleSystem, RoleUser, RoleUser, RoleUser}
	for i, m := range msgs {
		if m.Role != wantRoles[i] {
			t.Fatalf("message %d role = %q, want %q", i, m.Role, wantRoles[i])
		}
	}
	if msgs[0].Content != "You are a career coach assessing a resume against a job description." {
		t.Fatalf("unexpected system message: %q", msgs[0].Content)
	}
	if msgs[1].Content != "Job Description: Senior Go engineer" {
		t.Fatalf("unexpected job message: %q", msgs[1].Content)
	}
	if msgs[2].Content != "Resume: Go developer, 5 years" {
		t.Fatalf("unexpected resume message: %q", msgs[2].Content)
	}
}

func TestMatchRubricSections(t *testing.T) {
	rubric := MatchRubric()
	for _, section := range []string{
		"1. Key Skills Match:",
		"2. Missing Skills:",
		"3. Experience Alignment:",
		"4. Improvement Suggestions:",
		"5. Overall Rating: Score from 1-10",
	} {
		if !strings.Contains(rubric, section) {
			t.Fatalf("rubric missing %q", section)
		}
	}
	if !strings.HasSuffix(rubric, "without making assumptions about unlisted skills.") {
		t.Fatalf("rubric must end with the evidence-only instruction")
	}
}

func TestPromptHashDeterministic(t *testing.T) {
	h1 := PromptHash(BuildMatchPrompt("resume text", "job description"))
	h2 := PromptHash(BuildMatchPrompt("resume text", "job description"))
	if h1 != h2 {
		t.Fatalf("expected deterministic prompt hash, got %q and %q", h1, h2)
	}
	if h1 == PromptHash(BuildMatchPrompt("resume text", "different job")) {
		t.Fatalf("expected prompt hash to change when input changes")
	}
	if PromptString(nil) != "" {
		t.Fatalf("expected empty prompt string")
	}
}
