package util

import "testing"

func TestHashKey(t *testing.T) {
	jd := "Senior Go engineer, distributed systems"
	got := HashKey(jd)
	if got != HashKey(jd) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashKey(jd+".") {
		t.Fatalf("expected different input to change the hash")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: " resume.pdf ", want: "resume.pdf"},
		{in: "team/a\\cv.pdf", want: "team_a_cv.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("SanitizeFileName(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
