package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "events")
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	entries := []Entry{
		{Kind: "chat", Channel: "#c", UserID: "u1", UserName: "Robin", Text: "!fireworks", ReceivedAt: at},
		{Kind: "redemption", UserID: "u2", Payload: map[string]any{"reward_id": "rw-1"}, ReceivedAt: at.Add(time.Minute)},
	}
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := readEntries(t, filepath.Join(dir, "events-2025-06-01-12.jsonl.zst"))
	if len(got) != 2 {
		t.Fatalf("read %d entries, want 2", len(got))
	}
	if got[0].Text != "!fireworks" || got[0].Kind != "chat" {
		t.Errorf("entry 0 = %+v", got[0])
	}
	payload, _ := got[1].Payload.(map[string]any)
	if payload["reward_id"] != "rw-1" {
		t.Errorf("entry 1 payload = %v", got[1].Payload)
	}
}

func TestWriterRotatesPerHour(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "events")

	first := time.Date(2025, 6, 1, 12, 59, 0, 0, time.UTC)
	if err := w.Write(Entry{Kind: "chat", Text: "a", ReceivedAt: first}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(Entry{Kind: "chat", Text: "b", ReceivedAt: first.Add(2 * time.Minute)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	hour12 := readEntries(t, filepath.Join(dir, "events-2025-06-01-12.jsonl.zst"))
	hour13 := readEntries(t, filepath.Join(dir, "events-2025-06-01-13.jsonl.zst"))
	if len(hour12) != 1 || hour12[0].Text != "a" {
		t.Errorf("hour 12 = %+v", hour12)
	}
	if len(hour13) != 1 || hour13[0].Text != "b" {
		t.Errorf("hour 13 = %+v", hour13)
	}
}

func TestWriterStampsMissingTime(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "events")
	fixed := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	if err := w.Write(Entry{Kind: "chat", Text: "x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	got := readEntries(t, filepath.Join(dir, "events-2025-06-02-08.jsonl.zst"))
	if len(got) != 1 || !got[0].ReceivedAt.Equal(fixed) {
		t.Errorf("entries = %+v", got)
	}
}
