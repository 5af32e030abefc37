package manager

import (
	"testing"

	"stemd/pkg/types"
)

func TestJobStore_CreateAndGet(t *testing.T) {
	s := newJobStore()
	id := s.Create("/music/song.wav")
	if id == "" {
		t.Fatal("empty job id")
	}
	rec, ok := s.Get(id)
	if !ok {
		t.Fatal("job not found after Create")
	}
	if rec.Status != types.StatusPending || rec.FilePath != "/music/song.wav" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Result != nil || rec.Error != "" || rec.Progress != 0 {
		t.Fatalf("fresh record not zeroed: %+v", rec)
	}
	if _, ok := s.Get("nope"); ok {
		t.Fatal("unknown id should not resolve")
	}
	ids := map[string]bool{id: true}
	for i := 0; i < 100; i++ {
		next := s.Create("/music/other.wav")
		if ids[next] {
			t.Fatalf("duplicate job id %s", next)
		}
		ids[next] = true
	}
}

func TestJobStore_HappyTransitions(t *testing.T) {
	s := newJobStore()
	id := s.Create("/a.wav")
	if !s.SetProcessing(id) {
		t.Fatal("SetProcessing on pending should succeed")
	}
	if s.SetProcessing(id) {
		t.Fatal("SetProcessing twice should fail")
	}
	s.SetProgress(id, 42, types.StageSeparating)
	rec, _ := s.Get(id)
	if rec.Progress != 42 || rec.CurrentStage != types.StageSeparating {
		t.Fatalf("progress not applied: %+v", rec)
	}
	stems := map[string]string{"vocals": "/v.mp3"}
	if !s.Complete(id, stems) {
		t.Fatal("Complete on processing should succeed")
	}
	rec, _ = s.Get(id)
	if rec.Status != types.StatusCompleted || rec.Progress != 100 || rec.CurrentStage != types.StageDone {
		t.Fatalf("completion not applied: %+v", rec)
	}
	if rec.Result["vocals"] != "/v.mp3" {
		t.Fatalf("result missing: %+v", rec.Result)
	}
	// the stored copy must be isolated from the caller's map
	stems["vocals"] = "/mutated"
	rec, _ = s.Get(id)
	if rec.Result["vocals"] != "/v.mp3" {
		t.Fatal("stored result aliases caller map")
	}
}

func TestJobStore_FailOnlyFromProcessing(t *testing.T) {
	s := newJobStore()
	id := s.Create("/a.wav")
	if s.Fail(id, "boom") {
		t.Fatal("Fail on pending should be rejected")
	}
	s.SetProcessing(id)
	if !s.Fail(id, "boom") {
		t.Fatal("Fail on processing should succeed")
	}
	rec, _ := s.Get(id)
	if rec.Status != types.StatusFailed || rec.Error != "boom" {
		t.Fatalf("failure not recorded: %+v", rec)
	}
	if s.Complete(id, nil) {
		t.Fatal("Complete after Fail should be rejected")
	}
}

func TestJobStore_CancelOverridesEverything(t *testing.T) {
	s := newJobStore()

	// cancel a pending job
	id := s.Create("/a.wav")
	if !s.Cancel(id) {
		t.Fatal("Cancel on pending should succeed")
	}
	if s.SetProcessing(id) {
		t.Fatal("cancelled job must not be claimable")
	}

	// cancel mid-processing: terminal writes are dropped
	id2 := s.Create("/b.wav")
	s.SetProcessing(id2)
	s.Cancel(id2)
	if s.Complete(id2, map[string]string{"vocals": "/v.mp3"}) {
		t.Fatal("Complete after cancel should be rejected")
	}
	if s.Fail(id2, "late error") {
		t.Fatal("Fail after cancel should be rejected")
	}
	s.SetProgress(id2, 90, types.StageSeparating)
	rec, _ := s.Get(id2)
	if rec.Status != types.StatusCancelled || rec.Result != nil || rec.Error != "" || rec.Progress == 90 {
		t.Fatalf("cancel did not stick: %+v", rec)
	}

	// cancel even overrides a completed job, and is idempotent
	id3 := s.Create("/c.wav")
	s.SetProcessing(id3)
	s.Complete(id3, map[string]string{"vocals": "/v.mp3"})
	if !s.Cancel(id3) || !s.Cancel(id3) {
		t.Fatal("Cancel should succeed on terminal jobs")
	}
	rec, _ = s.Get(id3)
	if rec.Status != types.StatusCancelled {
		t.Fatalf("status = %q", rec.Status)
	}

	if s.Cancel("unknown") {
		t.Fatal("Cancel on unknown id should report not found")
	}
}

func TestJobStore_ProgressClamped(t *testing.T) {
	s := newJobStore()
	id := s.Create("/a.wav")
	s.SetProcessing(id)
	s.SetProgress(id, -5, "")
	if rec, _ := s.Get(id); rec.Progress != 0 {
		t.Fatalf("negative progress not clamped: %+v", rec)
	}
	s.SetProgress(id, 1000, "")
	if rec, _ := s.Get(id); rec.Progress != 100 {
		t.Fatalf("overflow progress not clamped: %+v", rec)
	}
	// empty stage keeps the previous one
	s.SetProgress(id, 10, types.StageSeparating)
	s.SetProgress(id, 20, "")
	if rec, _ := s.Get(id); rec.CurrentStage != types.StageSeparating {
		t.Fatalf("stage lost: %+v", rec)
	}
}

func TestJobStore_Counts(t *testing.T) {
	s := newJobStore()
	a := s.Create("/a.wav")
	b := s.Create("/b.wav")
	s.Create("/c.wav")
	s.SetProcessing(a)
	s.Cancel(b)
	counts := s.Counts()
	if counts[types.StatusProcessing] != 1 || counts[types.StatusCancelled] != 1 || counts[types.StatusPending] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d", s.Len())
	}
}
