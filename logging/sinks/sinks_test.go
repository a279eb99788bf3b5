package sinks

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/gglang/the-voices-sub000/logging"
)

func sampleEvent(tick uint64) logging.Event {
	return logging.Event{
		Type:     "dispatch.backup_queued",
		Tick:     tick,
		Time:     time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Actor:    logging.AgentRef("enforcer-1"),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryDispatch,
		Payload:  map[string]any{"x": 10},
	}
}

func TestJSONWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	if err := sink.Write(sampleEvent(1)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Write(sampleEvent(2)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["severity"] != "warn" || decoded["tick"].(float64) != 2 {
		t.Fatalf("unexpected line: %v", decoded)
	}
}

func TestConsoleRendersEventType(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{Format: "json"})
	if err := sink.Write(sampleEvent(4)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json entry, got %q", buf.String())
	}
	if entry["msg"] != "dispatch.backup_queued" || entry["level"] != "warning" || entry["actor"] != "agent:enforcer-1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestMemorySinkFiltersByType(t *testing.T) {
	sink := NewMemorySink()
	sink.Publish(context.Background(), sampleEvent(1))
	sink.Publish(context.Background(), logging.Event{Type: "other"})
	if got := len(sink.EventsOfType("dispatch.backup_queued")); got != 1 {
		t.Fatalf("expected 1 event, got %d", got)
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archive := NewArchive(dir, "events")
	for tick := uint64(1); tick <= 3; tick++ {
		if err := archive.Write(sampleEvent(tick)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := archive.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	path := archive.PathForHour(sampleEvent(0).Time)
	if filepath.Base(path) != "events-2024-05-06-07.jsonl.zst" {
		t.Fatalf("unexpected archive name %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	scanner := bufio.NewScanner(dec)
	lines := 0
	for scanner.Scan() {
		var decoded map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid line %q: %v", scanner.Text(), err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if lines != 3 {
		t.Fatalf("expected 3 archived events, got %d", lines)
	}
}

func TestIncidentsIndexAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incidents.db")
	sink, err := OpenIncidents(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer sink.Close(context.Background())

	if err := sink.Write(sampleEvent(7)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	other := sampleEvent(8)
	other.Type = "detection.player_identified"
	other.Category = logging.CategoryDetection
	if err := sink.Write(other); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	rows, err := sink.Query(context.Background(), "dispatch.backup_queued")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Tick != 7 || rows[0].ActorID != "enforcer-1" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].Payload != `{"x":10}` {
		t.Fatalf("unexpected payload %q", rows[0].Payload)
	}

	all, err := sink.Query(context.Background(), "")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d err=%v", len(all), err)
	}
}

func TestBuildRejectsUnknownSink(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"console", "carrier-pigeon"}
	if _, err := Build(cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown sink")
	}
}
