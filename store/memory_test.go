package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/matchkit/core"
)

func TestMemoryStoreBasic(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want store not found", err)
	}

	if err := s.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want %q", got, "v1")
	}

	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after Delete error = %v, want store not found", err)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "short", []byte("x"), 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get(ctx, "short"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := s.Get(ctx, "short"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after expiry error = %v, want store not found", err)
	}
}

func TestMemoryStoreKeys(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	s.Set(ctx, "rec:job:1", []byte("a"))
	s.Set(ctx, "rec:job:2", []byte("b"))
	s.Set(ctx, "rec:resume:1", []byte("c"))
	s.Set(ctx, "other", []byte("d"))

	keys, err := s.Keys(ctx, "rec:job:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys(rec:job:) = %v, want 2 keys", keys)
	}
	keys, err = s.Keys(ctx, "rec:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 3 {
		t.Errorf("Keys(rec:) = %v, want 3 keys", keys)
	}
}

func TestMemoryConfigsSingleActive(t *testing.T) {
	m := NewMemoryConfigs()
	ctx := context.Background()

	a, err := m.Create(ctx, core.DefaultTuningConfig())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b := core.DefaultTuningConfig()
	b.Name = "候选配置"
	b.Active = false
	created, err := m.Create(ctx, b)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	active, err := m.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.ID != a.ID {
		t.Errorf("active = %d, want %d", active.ID, a.ID)
	}

	if _, err := m.SetActive(ctx, created.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	all, _ := m.List(ctx)
	activeCount := 0
	for _, cfg := range all {
		if cfg.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("active count = %d, want 1", activeCount)
	}
	active, _ = m.GetActive(ctx)
	if active.ID != created.ID {
		t.Errorf("active = %d, want %d", active.ID, created.ID)
	}
}

func TestMemoryConfigsGetOrCreateDefault(t *testing.T) {
	m := NewMemoryConfigs()
	ctx := context.Background()

	cfg, err := m.GetOrCreateDefault(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateDefault: %v", err)
	}
	if !cfg.Active {
		t.Error("bootstrapped default should be active")
	}
	if cfg.VectorWeight != 0.6 || cfg.InteractionWeight != 0.4 {
		t.Errorf("default weights = %v/%v, want 0.6/0.4", cfg.VectorWeight, cfg.InteractionWeight)
	}

	again, err := m.GetOrCreateDefault(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateDefault second call: %v", err)
	}
	if again.ID != cfg.ID {
		t.Errorf("second call ID = %d, want %d (no duplicate creation)", again.ID, cfg.ID)
	}
}

func TestMemoryConfigsWeightValidation(t *testing.T) {
	m := NewMemoryConfigs()
	ctx := context.Background()

	bad := core.DefaultTuningConfig()
	bad.VectorWeight = 0.8
	bad.InteractionWeight = 0.4
	if _, err := m.Create(ctx, bad); !core.IsInvalidInput(err) {
		t.Errorf("Create with bad weights error = %v, want invalid input", err)
	}
}

func TestMemoryDocumentsNotFound(t *testing.T) {
	m := NewMemoryDocuments()
	ctx := context.Background()

	if _, err := m.GetResume(ctx, 42); !core.IsNotFound(err) {
		t.Errorf("GetResume error = %v, want not found", err)
	}
	if _, err := m.GetJob(ctx, 42); !core.IsNotFound(err) {
		t.Errorf("GetJob error = %v, want not found", err)
	}
}

func TestMemoryDocumentsActiveFilter(t *testing.T) {
	m := NewMemoryDocuments()
	ctx := context.Background()

	m.PutJob(&core.JobRecord{ID: 1, Title: "Go 工程师", Active: true})
	m.PutJob(&core.JobRecord{ID: 2, Title: "已下线职位", Active: false})

	all, _ := m.ListJobs(ctx, false)
	if len(all) != 2 {
		t.Errorf("ListJobs(false) = %d jobs, want 2", len(all))
	}
	active, _ := m.ListJobs(ctx, true)
	if len(active) != 1 || active[0].ID != 1 {
		t.Errorf("ListJobs(true) = %v, want only job 1", active)
	}
}

func TestMemoryFeedbackFilter(t *testing.T) {
	m := NewMemoryFeedback()
	ctx := context.Background()

	m.Insert(ctx, &core.FeedbackRecord{UserID: 1, JobID: 10, Kind: "relevant", Algorithm: "vector"})
	m.Insert(ctx, &core.FeedbackRecord{UserID: 1, JobID: 11, Kind: "skipped", Algorithm: "interaction"})
	m.Insert(ctx, &core.FeedbackRecord{UserID: 2, JobID: 10, Kind: "relevant", Algorithm: "vector"})

	byUser, _ := m.List(ctx, core.FeedbackFilter{UserID: 1})
	if len(byUser) != 2 {
		t.Errorf("List(UserID=1) = %d, want 2", len(byUser))
	}
	byKind, _ := m.List(ctx, core.FeedbackFilter{Kind: "relevant"})
	if len(byKind) != 2 {
		t.Errorf("List(Kind=relevant) = %d, want 2", len(byKind))
	}

	algos, _ := m.Algorithms(ctx, time.Time{})
	if len(algos) != 2 {
		t.Errorf("Algorithms = %v, want 2 entries", algos)
	}
}
