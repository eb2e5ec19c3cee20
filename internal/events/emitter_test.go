package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestEmitRejectsUnknownEvent(t *testing.T) {
	if _, err := Emit("info", "puzzle.solved", "", nil); err == nil {
		t.Fatal("expected error for an event outside the allow-list")
	}
}

func TestEmitWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Emit("warn", "run.save_failed", "disk full", map[string]interface{}{"subdir": "train/01"})
	Emit("info", "director.completed", "", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if e.Level != "warn" || e.Name != "run.save_failed" || e.Message != "disk full" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Fields["subdir"] != "train/01" {
		t.Errorf("unexpected fields: %v", e.Fields)
	}
}

func TestRingBufferWrapsAndCounts(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Add(Event{Fields: map[string]interface{}{"i": i}})
	}
	snap := rb.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	if snap[0].Fields["i"] != 2 || snap[2].Fields["i"] != 4 {
		t.Errorf("unexpected order: %v %v", snap[0].Fields, snap[2].Fields)
	}
	if rb.TotalCount() != 5 {
		t.Errorf("expected total 5, got %d", rb.TotalCount())
	}

	rb.Clear()
	if len(rb.Snapshot()) != 0 || rb.TotalCount() != 0 {
		t.Error("expected empty buffer after clear")
	}
}

func TestClearResetsTotalCount(t *testing.T) {
	Clear()
	Emit("info", "system.startup", "", nil)
	if TotalCount() != 1 {
		t.Errorf("expected 1 event, got %d", TotalCount())
	}
	Clear()
	if TotalCount() != 0 {
		t.Errorf("expected 0 events after clear, got %d", TotalCount())
	}
}
