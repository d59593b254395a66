package mcp

import "testing"

// TestJSONResult verifies tool results marshal as indented JSON text.
func TestJSONResult(t *testing.T) {
	res, err := jsonResult(map[string]int{"class_id": 7})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatal("unexpected error result")
	}
	if len(res.Content) != 1 {
		t.Fatalf("content items = %d, want 1", len(res.Content))
	}
}

// TestJSONResultUnencodable verifies encoding failures come back as
// tool errors, not transport errors.
func TestJSONResultUnencodable(t *testing.T) {
	res, err := jsonResult(func() {})
	if err != nil {
		t.Fatalf("transport error: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error result")
	}
}
