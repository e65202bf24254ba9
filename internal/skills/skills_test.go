package skills

import (
	"reflect"
	"testing"
)

func TestExtractIndicatorList(t *testing.T) {
	got := NewIndicatorExtractor().Extract("Proficient in Python, Go, distributed systems. Unrelated sentence.")
	want := []string{"distributed systems", "go", "python"}
	if !reflect.DeepEqual(got.Sorted(), want) {
		t.Fatalf("Extract = %v, want %v", got.Sorted(), want)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: []string{}},
		{name: "whitespace", text: "   \n\t", want: []string{}},
		{name: "no indicators", text: "Built things. Shipped them.", want: []string{}},
		{
			name: "two indicators in one segment",
			text: "Experience with Docker, Kubernetes and knowledge of SQL, Redis.",
			want: []string{"docker", "kubernetes and knowledge of sql", "redis", "sql"},
		},
		{
			name: "repeated indicator stops at second occurrence",
			text: "Skilled in Go, Rust skilled in Java",
			want: []string{"go", "rust"},
		},
		{
			name: "duplicates across segments",
			text: "Familiar with Go. Expertise in go, GO.",
			want: []string{"go"},
		},
		{
			name: "qualification headings both contribute",
			text: "Essential qualifications: AWS, Terraform",
			want: []string{": aws", "terraform"},
		},
		{
			name: "empty pieces dropped",
			text: "Proficient in , ,C++,",
			want: []string{"c++"},
		},
	}

	ex := NewIndicatorExtractor()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.text).Sorted()
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDeterministicAndIdempotent(t *testing.T) {
	text := "Proficient in Go, SQL. Experience with gRPC, Kafka, go. Knowledge of Linux."
	ex := NewIndicatorExtractor()
	first := ex.Extract(text)
	second := ex.Extract(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical sets, got %v and %v", first.Sorted(), second.Sorted())
	}

	again := Set{}
	for _, s := range first.Sorted() {
		again.Add(s)
	}
	if again.Len() != first.Len() {
		t.Fatalf("expected set to already be deduplicated: %d vs %d", again.Len(), first.Len())
	}
}

func TestCustomIndicators(t *testing.T) {
	ex := NewIndicatorExtractor("  Tools: ", "")
	if got := ex.Indicators(); !reflect.DeepEqual(got, []string{"tools:"}) {
		t.Fatalf("Indicators = %v", got)
	}
	got := ex.Extract("Tools: vim, tmux. Proficient in Go.").Sorted()
	want := []string{"tmux", "vim"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}
