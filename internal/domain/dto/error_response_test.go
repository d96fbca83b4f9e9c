package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestErrorResponse_Error(t *testing.T) {
	e := ErrorResponse{Message: "oops"}
	if e.Error() != "oops" {
		t.Fatalf("want 'oops' got %q", e.Error())
	}
	e2 := ErrorResponse{Message: "oops", ErrorDetails: "bad"}
	if e2.Error() != "oops: bad" {
		t.Fatalf("want 'oops: bad' got %q", e2.Error())
	}
}

func TestNewErrorResponse(t *testing.T) {
	e := NewErrorResponse("msg", 404, nil)
	if e.Message != "msg" || e.Status != 404 || e.ErrorDetails != "" {
		t.Fatalf("unexpected %+v", e)
	}
	if e.Timestamp.IsZero() || time.Since(e.Timestamp) > time.Second {
		t.Fatalf("timestamp not set")
	}

	e2 := NewErrorResponse("msg", 503, errors.New("boom"))
	if e2.ErrorDetails != "boom" {
		t.Fatalf("unexpected %+v", e2)
	}
	if e2.WithoutDetails().ErrorDetails != "" {
		t.Fatalf("details not stripped")
	}
}

func TestErrorResponse_JSONShape(t *testing.T) {
	b, err := json.Marshal(NewErrorResponse("ticker not found", 404, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["error"] != "ticker not found" || m["status"] != float64(404) {
		t.Fatalf("unexpected body %s", b)
	}
	if _, ok := m["details"]; ok {
		t.Fatalf("empty details must be omitted: %s", b)
	}
}
