package recommend

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/recall"
	"github.com/rushteam/matchkit/store"
)

type fakeSource struct {
	name  string
	ready bool
	items []*core.Item
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Ready() bool  { return f.ready }
func (f *fakeSource) Recall(ctx context.Context, req recall.Request) ([]*core.Item, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return core.CloneItems(f.items), nil
}

func jobItem(id int64, score float64, algo string) *core.Item {
	it := core.NewItem(core.KindJob, id)
	it.MatchScore = score
	it.AddAlgorithm(algo)
	return it
}

func testDocs() *store.MemoryDocuments {
	docs := store.NewMemoryDocuments()
	docs.PutResume(&core.ResumeRecord{ID: 1, Title: "backend engineer", UserName: "张三", UserEmail: "z@example.com"})
	for id := int64(10); id <= 14; id++ {
		docs.PutJob(&core.JobRecord{ID: id, Title: "job", Company: "acme", Active: true})
	}
	return docs
}

func TestWeightedFusion(t *testing.T) {
	docs := testDocs()
	configs := store.NewMemoryConfigs()

	vector := &fakeSource{name: core.AlgorithmVector, ready: true, items: []*core.Item{
		jobItem(10, 0.9, core.AlgorithmVector),
		jobItem(11, 0.6, core.AlgorithmVector),
	}}
	interaction := &fakeSource{name: core.AlgorithmInteraction, ready: true, items: []*core.Item{
		jobItem(11, 0.5, core.AlgorithmInteraction),
		jobItem(12, 0.5, core.AlgorithmInteraction),
	}}

	svc := NewService(docs, configs, []recall.Source{vector, interaction})
	items, err := svc.RecommendJobs(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}

	// 0.6/0.4 权重下：job 11 = 0.6*0.6 + 0.5*0.4 = 0.56，
	// job 10 = 0.9*0.6 = 0.54，job 12 = 0.5*0.4 = 0.2
	wantOrder := []int64{11, 10, 12}
	wantScore := []float64{0.56, 0.54, 0.2}
	for i, it := range items {
		if it.ID != wantOrder[i] {
			t.Errorf("rank %d = job %d, want %d", i, it.ID, wantOrder[i])
		}
		if math.Abs(it.MatchScore-wantScore[i]) > 1e-9 {
			t.Errorf("job %d score = %v, want %v", it.ID, it.MatchScore, wantScore[i])
		}
	}
	// job 11 由两个算法共同贡献
	if len(items[0].Algorithms) != 2 {
		t.Errorf("job 11 algorithms = %v, want both sources", items[0].Algorithms)
	}
}

func TestInteractionNotReadyFallsBackToVector(t *testing.T) {
	docs := testDocs()
	configs := store.NewMemoryConfigs()

	vector := &fakeSource{name: core.AlgorithmVector, ready: true, items: []*core.Item{
		jobItem(10, 0.8, core.AlgorithmVector),
	}}
	interaction := &fakeSource{name: core.AlgorithmInteraction, ready: false}

	svc := NewService(docs, configs, []recall.Source{vector, interaction})
	items, err := svc.RecommendJobs(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}
	if interaction.calls != 0 {
		t.Error("not-ready source must not be called")
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	// 向量权重提升为 1.0
	if math.Abs(items[0].MatchScore-0.8) > 1e-9 {
		t.Errorf("score = %v, want 0.8 (vector weight renormalized to 1.0)", items[0].MatchScore)
	}
	wantAlgos := []string{core.AlgorithmVector}
	if len(items[0].Algorithms) != 1 || items[0].Algorithms[0] != wantAlgos[0] {
		t.Errorf("algorithms = %v, want %v", items[0].Algorithms, wantAlgos)
	}
}

func TestSourceErrorDoesNotFailRequest(t *testing.T) {
	docs := testDocs()
	configs := store.NewMemoryConfigs()

	vector := &fakeSource{name: core.AlgorithmVector, ready: true, items: []*core.Item{
		jobItem(10, 0.8, core.AlgorithmVector),
	}}
	broken := &fakeSource{
		name: core.AlgorithmInteraction, ready: true,
		err: core.NewDomainError(core.ModuleModel, core.ErrorCodeInternalError, "boom"),
	}

	svc := NewService(docs, configs, []recall.Source{vector, broken})
	items, err := svc.RecommendJobs(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}
	if len(items) != 1 || items[0].ID != 10 {
		t.Errorf("items = %v, want vector result only", items)
	}
}

func TestSubjectValidation(t *testing.T) {
	docs := testDocs()
	docs.PutJob(&core.JobRecord{ID: 20, Title: "closed", Active: false})
	configs := store.NewMemoryConfigs()
	svc := NewService(docs, configs, nil)

	if _, err := svc.RecommendJobs(context.Background(), 999, 10); !core.IsNotFound(err) {
		t.Errorf("unknown resume error = %v, want not found", err)
	}
	if _, err := svc.RecommendResumes(context.Background(), 999, 10); !core.IsNotFound(err) {
		t.Errorf("unknown job error = %v, want not found", err)
	}
	if _, err := svc.RecommendResumes(context.Background(), 20, 10); !core.IsInvalidInput(err) {
		t.Errorf("inactive job error = %v, want invalid input", err)
	}
}

func TestInactiveAndDeletedCandidatesDropped(t *testing.T) {
	docs := testDocs()
	docs.PutJob(&core.JobRecord{ID: 30, Title: "closed", Active: false})
	configs := store.NewMemoryConfigs()

	vector := &fakeSource{name: core.AlgorithmVector, ready: true, items: []*core.Item{
		jobItem(10, 0.9, core.AlgorithmVector),
		jobItem(30, 0.8, core.AlgorithmVector),  // 非活跃
		jobItem(999, 0.7, core.AlgorithmVector), // 已删除
	}}
	svc := NewService(docs, configs, []recall.Source{vector})
	items, err := svc.RecommendJobs(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}
	if len(items) != 1 || items[0].ID != 10 {
		t.Errorf("items = %v, want only active existing job 10", items)
	}
	if items[0].Company != "acme" {
		t.Error("hydration should fill display fields")
	}
}

func TestFilterRule(t *testing.T) {
	docs := testDocs()
	configs := store.NewMemoryConfigs()
	cfg := core.DefaultTuningConfig()
	cfg.FilterRule = "item.match_score > 0.3"
	if _, err := configs.Create(context.Background(), cfg); err != nil {
		t.Fatalf("Create: %v", err)
	}

	vector := &fakeSource{name: core.AlgorithmVector, ready: true, items: []*core.Item{
		jobItem(10, 0.9, core.AlgorithmVector),
		jobItem(11, 0.2, core.AlgorithmVector),
	}}
	svc := NewService(docs, configs, []recall.Source{vector})
	items, err := svc.RecommendJobs(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}
	if len(items) != 1 || items[0].ID != 10 {
		t.Errorf("items = %v, want rule to drop job 11", items)
	}
}

func TestCacheHitAndConfigInvalidation(t *testing.T) {
	ctx := context.Background()
	docs := testDocs()
	configs := store.NewMemoryConfigs()
	kv := store.NewMemoryStore()
	defer kv.Close()

	vector := &fakeSource{name: core.AlgorithmVector, ready: true, items: []*core.Item{
		jobItem(10, 0.9, core.AlgorithmVector),
	}}
	svc := NewService(docs, configs, []recall.Source{vector}, WithCache(NewCache(kv, 600)))

	if _, err := svc.RecommendJobs(ctx, 1, 10); err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}
	if _, err := svc.RecommendJobs(ctx, 1, 10); err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}
	if vector.calls != 1 {
		t.Errorf("source calls = %d, want 1 (second request served from cache)", vector.calls)
	}

	// 配置更新使缓存失效
	cfg, err := configs.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	cfg.VectorWeight, cfg.InteractionWeight = 0.5, 0.5
	if err := configs.Update(ctx, cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := svc.RecommendJobs(ctx, 1, 10); err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}
	if vector.calls != 2 {
		t.Errorf("source calls = %d, want 2 (config change invalidates cache)", vector.calls)
	}
}

func TestCleanCache(t *testing.T) {
	ctx := context.Background()
	docs := testDocs()
	configs := store.NewMemoryConfigs()
	kv := store.NewMemoryStore()
	defer kv.Close()

	vector := &fakeSource{name: core.AlgorithmVector, ready: true, items: []*core.Item{
		jobItem(10, 0.9, core.AlgorithmVector),
	}}
	svc := NewService(docs, configs, []recall.Source{vector}, WithCache(NewCache(kv, 600)))
	if _, err := svc.RecommendJobs(ctx, 1, 10); err != nil {
		t.Fatalf("RecommendJobs: %v", err)
	}

	// 当前配置有效：不清除
	removed, err := svc.CleanCache(ctx)
	if err != nil {
		t.Fatalf("CleanCache: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}

	// 换激活配置后旧条目变陈旧
	cfg := core.DefaultTuningConfig()
	cfg.Name = "新配置"
	created, err := configs.Create(ctx, cfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := configs.SetActive(ctx, created.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	removed, err = svc.CleanCache(ctx)
	if err != nil {
		t.Fatalf("CleanCache: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestMatchDetail(t *testing.T) {
	docs := testDocs()
	configs := store.NewMemoryConfigs()

	vector := &fakeSource{name: core.AlgorithmVector, ready: true, items: []*core.Item{
		jobItem(10, 0.9, core.AlgorithmVector),
	}}
	svc := NewService(docs, configs, []recall.Source{vector})

	detail, err := svc.MatchDetail(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("MatchDetail: %v", err)
	}
	if detail.MatchScore <= 0 {
		t.Error("scored pair should have positive match score")
	}
	if detail.Company != "acme" {
		t.Error("detail should carry display fields")
	}

	// 无来源覆盖的配对：零分明细而非错误
	detail, err = svc.MatchDetail(context.Background(), 1, 14)
	if err != nil {
		t.Fatalf("MatchDetail: %v", err)
	}
	if detail.MatchScore != 0 {
		t.Errorf("unscored pair score = %v, want 0", detail.MatchScore)
	}
}
