package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/matchkit/core"
)

// 本文件提供协作方接口（DocumentStore / InteractionStore / ConfigStore /
// FeedbackStore）的内存实现，供开发、测试与原型使用。生产环境通常由
// 业务系统的关系库适配这些接口。

// MemoryDocuments 是内存实现的 DocumentStore + InteractionStore。
type MemoryDocuments struct {
	mu           sync.RWMutex
	resumes      map[int64]*core.ResumeRecord
	jobs         map[int64]*core.JobRecord
	applications []core.Interaction
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{
		resumes: make(map[int64]*core.ResumeRecord),
		jobs:    make(map[int64]*core.JobRecord),
	}
}

// PutResume 写入或覆盖一份简历。
func (m *MemoryDocuments) PutResume(r *core.ResumeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.resumes[cp.ID] = &cp
}

// PutJob 写入或覆盖一个职位。
func (m *MemoryDocuments) PutJob(j *core.JobRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.jobs[cp.ID] = &cp
}

// DeleteResume 删除一份简历（不存在时为空操作）。
func (m *MemoryDocuments) DeleteResume(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resumes, id)
}

// DeleteJob 删除一个职位（不存在时为空操作）。
func (m *MemoryDocuments) DeleteJob(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// AddApplication 追加一条申请事件；strength 为 0 时按 1.0 记录。
func (m *MemoryDocuments) AddApplication(resumeID, jobID int64, strength float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strength == 0 {
		strength = 1.0
	}
	m.applications = append(m.applications, core.Interaction{
		ResumeID: resumeID,
		JobID:    jobID,
		Strength: strength,
	})
}

func (m *MemoryDocuments) GetResume(ctx context.Context, id int64) (*core.ResumeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resumes[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "store: resume not found")
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryDocuments) GetJob(ctx context.Context, id int64) (*core.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "store: job not found")
	}
	cp := *j
	return &cp, nil
}

func (m *MemoryDocuments) ListResumes(ctx context.Context) ([]*core.ResumeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.ResumeRecord, 0, len(m.resumes))
	for _, r := range m.resumes {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryDocuments) ListJobs(ctx context.Context, activeOnly bool) ([]*core.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.JobRecord, 0, len(m.jobs))
	for _, j := range m.jobs {
		if activeOnly && !j.Active {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryDocuments) ListApplications(ctx context.Context) ([]core.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Interaction, len(m.applications))
	copy(out, m.applications)
	return out, nil
}

var (
	_ core.DocumentStore    = (*MemoryDocuments)(nil)
	_ core.InteractionStore = (*MemoryDocuments)(nil)
)

// MemoryConfigs 是内存实现的 ConfigStore。
// 保证任意时刻至多一个配置处于激活状态。
type MemoryConfigs struct {
	mu      sync.Mutex
	configs map[int64]*core.TuningConfig
	nextID  int64
}

func NewMemoryConfigs() *MemoryConfigs {
	return &MemoryConfigs{
		configs: make(map[int64]*core.TuningConfig),
		nextID:  1,
	}
}

func (m *MemoryConfigs) Get(ctx context.Context, id int64) (*core.TuningConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeNotFound, "config: not found")
	}
	cp := *cfg
	return &cp, nil
}

func (m *MemoryConfigs) List(ctx context.Context) ([]*core.TuningConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.TuningConfig, 0, len(m.configs))
	for _, cfg := range m.configs {
		cp := *cfg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryConfigs) Create(ctx context.Context, cfg *core.TuningConfig) (*core.TuningConfig, error) {
	if err := cfg.ValidateWeights(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *cfg
	cp.ID = m.nextID
	m.nextID++
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	if cp.Active {
		for _, other := range m.configs {
			other.Active = false
		}
	}
	m.configs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryConfigs) Update(ctx context.Context, cfg *core.TuningConfig) error {
	if err := cfg.ValidateWeights(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.configs[cfg.ID]
	if !ok {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeNotFound, "config: not found")
	}
	cp := *cfg
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now()
	if cp.Active {
		for id, other := range m.configs {
			if id != cp.ID {
				other.Active = false
			}
		}
	}
	m.configs[cp.ID] = &cp
	return nil
}

func (m *MemoryConfigs) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[id]; !ok {
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeNotFound, "config: not found")
	}
	delete(m.configs, id)
	return nil
}

func (m *MemoryConfigs) GetActive(ctx context.Context) (*core.TuningConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range m.configs {
		if cfg.Active {
			cp := *cfg
			return &cp, nil
		}
	}
	return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeNotFound, "config: no active config")
}

func (m *MemoryConfigs) SetActive(ctx context.Context, id int64) (*core.TuningConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.configs[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeNotFound, "config: not found")
	}
	for _, cfg := range m.configs {
		cfg.Active = false
	}
	target.Active = true
	target.UpdatedAt = time.Now()
	cp := *target
	return &cp, nil
}

func (m *MemoryConfigs) GetOrCreateDefault(ctx context.Context) (*core.TuningConfig, error) {
	if cfg, err := m.GetActive(ctx); err == nil {
		return cfg, nil
	}

	m.mu.Lock()
	if len(m.configs) > 0 {
		// 有配置但均未激活：激活 ID 最小的一个
		ids := make([]int64, 0, len(m.configs))
		for id := range m.configs {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		first := ids[0]
		m.mu.Unlock()
		return m.SetActive(ctx, first)
	}
	m.mu.Unlock()
	return m.Create(ctx, core.DefaultTuningConfig())
}

// RecordTrained 更新配置的最近训练时间。
func (m *MemoryConfigs) RecordTrained(id int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.configs[id]; ok {
		cfg.LastTrained = at
	}
}

var _ core.ConfigStore = (*MemoryConfigs)(nil)

// MemoryFeedback 是内存实现的 FeedbackStore。
type MemoryFeedback struct {
	mu      sync.Mutex
	records []*core.FeedbackRecord
	metrics []*core.FeedbackMetric
	nextID  int64
}

func NewMemoryFeedback() *MemoryFeedback {
	return &MemoryFeedback{nextID: 1}
}

func (m *MemoryFeedback) Insert(ctx context.Context, rec *core.FeedbackRecord) (*core.FeedbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	cp.ID = m.nextID
	m.nextID++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.records = append(m.records, &cp)
	out := cp
	return &out, nil
}

func (m *MemoryFeedback) List(ctx context.Context, filter core.FeedbackFilter) ([]*core.FeedbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.FeedbackRecord
	for _, rec := range m.records {
		if filter.UserID != 0 && rec.UserID != filter.UserID {
			continue
		}
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		if filter.Algorithm != "" && rec.Algorithm != filter.Algorithm {
			continue
		}
		if !filter.Since.IsZero() && rec.CreatedAt.Before(filter.Since) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryFeedback) Algorithms(ctx context.Context, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, rec := range m.records {
		if rec.Algorithm == "" || seen[rec.Algorithm] {
			continue
		}
		if !since.IsZero() && rec.CreatedAt.Before(since) {
			continue
		}
		seen[rec.Algorithm] = true
		out = append(out, rec.Algorithm)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryFeedback) InsertMetric(ctx context.Context, metric *core.FeedbackMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *metric
	cp.ID = m.nextID
	m.nextID++
	m.metrics = append(m.metrics, &cp)
	return nil
}

// Metrics 返回已持久化的指标行（测试用）。
func (m *MemoryFeedback) Metrics() []*core.FeedbackMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.FeedbackMetric, len(m.metrics))
	copy(out, m.metrics)
	return out
}

var _ core.FeedbackStore = (*MemoryFeedback)(nil)
