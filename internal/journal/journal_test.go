package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stemd/internal/manager"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_PersistsEvents(t *testing.T) {
	j := openTestJournal(t)

	j.Publish(manager.Event{Name: "job_created", JobID: "job-1", Fields: map[string]any{"file_path": "/a.wav"}})
	j.Publish(manager.Event{Name: "job_started", JobID: "job-1"})
	j.Publish(manager.Event{Name: "model_loaded", Model: "demucs"})
	j.Publish(manager.Event{Name: "job_completed", JobID: "job-1", Fields: map[string]any{"stems": 4}})

	entries := waitForEntries(t, j, "job-1", 3)
	if entries[0].Name != "job_created" || entries[1].Name != "job_started" || entries[2].Name != "job_completed" {
		t.Fatalf("order = %v", names(entries))
	}
	if entries[0].Details == "" || entries[0].CreatedAt.IsZero() {
		t.Fatalf("entry not fully populated: %+v", entries[0])
	}

	recent, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 4 {
		t.Fatalf("recent = %v", names(recent))
	}
	if recent[0].Name != "job_completed" {
		t.Fatalf("newest first expected, got %v", names(recent))
	}
}

func TestJournal_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	j.Publish(manager.Event{Name: "job_created", JobID: "job-2"})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer j2.Close()
	entries, err := j2.JobEvents(context.Background(), "job-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "job_created" {
		t.Fatalf("entries after reopen = %v", names(entries))
	}
}

func TestJournal_PublishAfterCloseDrops(t *testing.T) {
	j := openTestJournal(t)
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
	j.Publish(manager.Event{Name: "late"})
	if j.Dropped() == 0 {
		t.Fatal("publish after close should count as dropped")
	}
	// double close is safe
	if err := j.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestJournal_OpenErrors(t *testing.T) {
	if _, err := Open("", zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func waitForEntries(t *testing.T, j *Journal, jobID string, want int) []Entry {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := j.JobEvents(context.Background(), jobID)
		if err != nil {
			t.Fatalf("JobEvents: %v", err)
		}
		if len(entries) >= want {
			return entries
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("journal never reached %d entries for %s", want, jobID)
	return nil
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
