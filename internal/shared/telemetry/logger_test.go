package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteJSONLine(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("budget.exhausted", map[string]any{
		"limit": 10,
		"err":   errors.New("token budget exhausted"),
		"msg":   "must not override",
	})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if got["level"] != "warn" || got["msg"] != "budget.exhausted" {
		t.Fatalf("unexpected level/msg: %v", got)
	}
	if got["err"] != "token budget exhausted" {
		t.Fatalf("expected error to be stringified, got %v", got["err"])
	}
	if got["limit"] != float64(10) {
		t.Fatalf("unexpected limit: %v", got["limit"])
	}
	if _, ok := got["ts"].(string); !ok {
		t.Fatalf("missing ts")
	}
}
