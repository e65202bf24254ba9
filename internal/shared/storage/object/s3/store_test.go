package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"resume-matcher/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

type fakeGetter struct {
	key  string
	body string
	err  error
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.key = aws.ToString(params.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestOpenAppliesPrefix(t *testing.T) {
	fake := &fakeGetter{body: "%PDF-1.4"}
	s := &Store{client: fake, bucket: "resumes", prefix: normalizePrefix("/incoming/")}

	rc, err := s.Open(context.Background(), "batch-1/cv.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if fake.key != "incoming/batch-1/cv.pdf" {
		t.Fatalf("unexpected object key %q", fake.key)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestOpenMapsMissingKey(t *testing.T) {
	s := &Store{client: &fakeGetter{err: &s3types.NoSuchKey{}}, bucket: "resumes"}
	if _, err := s.Open(context.Background(), "nope.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	s = &Store{client: &fakeGetter{err: errors.New("access denied")}, bucket: "resumes"}
	if _, err := s.Open(context.Background(), "cv.pdf"); err == nil || errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected plain error, got %v", err)
	}
}
