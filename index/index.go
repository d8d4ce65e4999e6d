// Package index 实现基于 TF-IDF 的文本向量索引：
//   - 简历与职位两个"场"（arena），共享一份词表
//   - Rebuild 全量重建并原子切换；Upsert/Remove 增量维护
//   - 编码失败的文档进入待处理集合，超过阈值触发全量重建
//   - 相似度 = 0.7 × 余弦相似度 + 0.3 × 技能覆盖率
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/pkg/textproc"
)

const (
	// DefaultMaxFeatures 是索引词表的默认上限。
	DefaultMaxFeatures = 2000

	// PendingThreshold 是待处理文档数的全量重建阈值。
	PendingThreshold = 50

	// similarityWeight / skillWeight 是余弦相似度与技能覆盖率的融合权重。
	similarityWeight = 0.7
	skillWeight      = 0.3
)

// arena 是单个 Kind 的向量存储：行与 id 一一对应。
type arena struct {
	ids    []int64
	rows   [][]float64
	rowOf  map[int64]int
	skills map[int64][]string
}

func newArena() *arena {
	return &arena{
		rowOf:  make(map[int64]int),
		skills: make(map[int64][]string),
	}
}

func (a *arena) put(id int64, row []float64, skills []string) {
	if i, ok := a.rowOf[id]; ok {
		a.rows[i] = row
		a.skills[id] = skills
		return
	}
	a.rowOf[id] = len(a.ids)
	a.ids = append(a.ids, id)
	a.rows = append(a.rows, row)
	a.skills[id] = skills
}

// remove 压缩式删除：末尾元素顶替被删位置。不存在时为空操作。
func (a *arena) remove(id int64) {
	i, ok := a.rowOf[id]
	if !ok {
		return
	}
	last := len(a.ids) - 1
	if i != last {
		a.ids[i] = a.ids[last]
		a.rows[i] = a.rows[last]
		a.rowOf[a.ids[i]] = i
	}
	a.ids = a.ids[:last]
	a.rows = a.rows[:last]
	delete(a.rowOf, id)
	delete(a.skills, id)
}

func (a *arena) size() int { return len(a.ids) }

// Stats 是索引的运行时快照。
type Stats struct {
	Resumes   int       `json:"resumes"`
	Jobs      int       `json:"jobs"`
	Pending   int       `json:"pending"`
	Terms     int       `json:"terms"`
	Ready     bool      `json:"ready"`
	RebuiltAt time.Time `json:"rebuilt_at"`
}

// VectorIndex 是简历↔职位双向的文本相似度索引。
// 所有公开方法并发安全。
type VectorIndex struct {
	docs   core.DocumentStore
	policy MatchPolicy

	maxFeatures int

	mu        sync.RWMutex
	vec       *textproc.Vectorizer
	resumes   *arena
	jobs      *arena
	pending   map[core.Kind]map[int64]bool
	rebuiltAt time.Time
}

// Option 配置 VectorIndex。
type Option func(*VectorIndex)

// WithMaxFeatures 覆盖词表上限。
func WithMaxFeatures(n int) Option {
	return func(ix *VectorIndex) { ix.maxFeatures = n }
}

// WithMatchPolicy 覆盖技能识别策略。
func WithMatchPolicy(p MatchPolicy) Option {
	return func(ix *VectorIndex) { ix.policy = p }
}

func NewVectorIndex(docs core.DocumentStore, opts ...Option) *VectorIndex {
	ix := &VectorIndex{
		docs:        docs,
		policy:      NewHeuristicPolicy(),
		maxFeatures: DefaultMaxFeatures,
		resumes:     newArena(),
		jobs:        newArena(),
		pending: map[core.Kind]map[int64]bool{
			core.KindResume: {},
			core.KindJob:    {},
		},
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Ready 返回索引是否已完成至少一次成功重建。
func (ix *VectorIndex) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.vec != nil && ix.vec.Fitted()
}

// Stats 返回索引快照。
func (ix *VectorIndex) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s := Stats{
		Resumes:   ix.resumes.size(),
		Jobs:      ix.jobs.size(),
		Pending:   len(ix.pending[core.KindResume]) + len(ix.pending[core.KindJob]),
		Ready:     ix.vec != nil && ix.vec.Fitted(),
		RebuiltAt: ix.rebuiltAt,
	}
	if ix.vec != nil {
		s.Terms = ix.vec.VocabularySize()
	}
	return s
}

// PendingCount 返回待处理文档数。
func (ix *VectorIndex) PendingCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.pending[core.KindResume]) + len(ix.pending[core.KindJob])
}

// PendingOverflow 返回待处理文档数是否已达到全量重建阈值。
func (ix *VectorIndex) PendingOverflow() bool {
	return ix.PendingCount() >= PendingThreshold
}

// Rebuild 全量重建索引：重新拟合词表并编码全部文档，成功后原子切换
// 并清空待处理集合。任一侧语料为空时返回错误且保留旧索引。
func (ix *VectorIndex) Rebuild(ctx context.Context) error {
	resumes, err := ix.docs.ListResumes(ctx)
	if err != nil {
		return fmt.Errorf("index: list resumes: %w", err)
	}
	jobs, err := ix.docs.ListJobs(ctx, false)
	if err != nil {
		return fmt.Errorf("index: list jobs: %w", err)
	}

	if len(resumes) == 0 {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeUnavailable, "index: no resumes to index")
	}
	if len(jobs) == 0 {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeUnavailable, "index: no jobs to index")
	}

	corpus := make([]string, 0, len(resumes)+len(jobs))
	for _, r := range resumes {
		corpus = append(corpus, r.Corpus())
	}
	for _, j := range jobs {
		corpus = append(corpus, j.Corpus())
	}

	vec := textproc.NewVectorizer(ix.maxFeatures)
	rows, err := vec.Fit(corpus)
	if err != nil {
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeUnavailable, "index: fit failed: "+err.Error())
	}

	ra := newArena()
	for i, r := range resumes {
		ra.put(r.ID, rows[i], ix.policy.ExtractSkills(r.Skills))
	}
	ja := newArena()
	for i, j := range jobs {
		ja.put(j.ID, rows[len(resumes)+i], ix.policy.ExtractSkills(j.Description+" "+j.Requirements))
	}

	ix.mu.Lock()
	ix.vec = vec
	ix.resumes = ra
	ix.jobs = ja
	ix.pending[core.KindResume] = map[int64]bool{}
	ix.pending[core.KindJob] = map[int64]bool{}
	ix.rebuiltAt = time.Now()
	ix.mu.Unlock()
	return nil
}

// Upsert 增量写入单篇文档（冻结词表编码）。文档不存在时视同删除；
// 索引尚未重建或编码失败时记入待处理集合并返回错误。
func (ix *VectorIndex) Upsert(ctx context.Context, kind core.Kind, id int64) error {
	var text, skillText string
	switch kind {
	case core.KindResume:
		r, err := ix.docs.GetResume(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				ix.Remove(kind, id)
				return nil
			}
			return err
		}
		text, skillText = r.Corpus(), r.Skills
	case core.KindJob:
		j, err := ix.docs.GetJob(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				ix.Remove(kind, id)
				return nil
			}
			return err
		}
		text, skillText = j.Corpus(), j.Description+" "+j.Requirements
	default:
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeInvalidInput, "index: unknown kind "+string(kind))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.vec == nil || !ix.vec.Fitted() {
		ix.pending[kind][id] = true
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeUnavailable, "index: not built yet")
	}
	row, err := ix.vec.Transform(text)
	if err != nil {
		ix.pending[kind][id] = true
		return core.NewDomainError(core.ModuleIndex, core.ErrorCodeUnavailable, "index: encode failed: "+err.Error())
	}
	ix.arenaOf(kind).put(id, row, ix.policy.ExtractSkills(skillText))
	delete(ix.pending[kind], id)
	return nil
}

// Remove 从索引中删除文档，不存在时为空操作。
func (ix *VectorIndex) Remove(kind core.Kind, id int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if a := ix.arenaOf(kind); a != nil {
		a.remove(id)
	}
	if p, ok := ix.pending[kind]; ok {
		delete(p, id)
	}
}

// ReconcilePending 逐个重试待处理文档；达到阈值时改做全量重建。
// 返回处理成功的文档数。
func (ix *VectorIndex) ReconcilePending(ctx context.Context) (int, error) {
	if ix.PendingOverflow() {
		if err := ix.Rebuild(ctx); err != nil {
			return 0, err
		}
		return 0, nil
	}

	ix.mu.RLock()
	todo := make(map[core.Kind][]int64)
	for kind, set := range ix.pending {
		for id := range set {
			todo[kind] = append(todo[kind], id)
		}
	}
	ix.mu.RUnlock()

	done := 0
	for kind, ids := range todo {
		for _, id := range ids {
			if err := ix.Upsert(ctx, kind, id); err != nil {
				continue
			}
			done++
		}
	}
	return done, nil
}

func (ix *VectorIndex) arenaOf(kind core.Kind) *arena {
	switch kind {
	case core.KindResume:
		return ix.resumes
	case core.KindJob:
		return ix.jobs
	}
	return nil
}

// SimilarJobsForResume 返回与简历最相似的职位候选，按融合分降序。
// 主体简历不在索引中时先尝试增量写入。
func (ix *VectorIndex) SimilarJobsForResume(ctx context.Context, resumeID int64, limit int) ([]*core.Item, error) {
	return ix.similar(ctx, core.KindResume, resumeID, limit)
}

// SimilarResumesForJob 返回与职位最相似的简历候选，按融合分降序。
func (ix *VectorIndex) SimilarResumesForJob(ctx context.Context, jobID int64, limit int) ([]*core.Item, error) {
	return ix.similar(ctx, core.KindJob, jobID, limit)
}

func (ix *VectorIndex) similar(ctx context.Context, subjectKind core.Kind, subjectID int64, limit int) ([]*core.Item, error) {
	if !ix.Ready() {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeUnavailable, "index: not built yet")
	}
	ix.mu.RLock()
	_, known := ix.arenaOf(subjectKind).rowOf[subjectID]
	ix.mu.RUnlock()
	if !known {
		if err := ix.Upsert(ctx, subjectKind, subjectID); err != nil {
			return nil, err
		}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	subjectArena := ix.arenaOf(subjectKind)
	i, ok := subjectArena.rowOf[subjectID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleIndex, core.ErrorCodeNotFound, "index: subject not found")
	}
	subjectRow := subjectArena.rows[i]
	subjectSkills := subjectArena.skills[subjectID]

	targetKind := subjectKind.Opposite()
	targetArena := ix.arenaOf(targetKind)

	items := make([]*core.Item, 0, targetArena.size())
	for j, id := range targetArena.ids {
		cos := textproc.Cosine(subjectRow, targetArena.rows[j])
		if cos <= 0 {
			continue
		}
		// 技能覆盖率的分母始终是职位侧技能
		var skillScore float64
		var matched []string
		if targetKind == core.KindJob {
			skillScore, matched = ix.policy.Score(subjectSkills, targetArena.skills[id])
		} else {
			skillScore, matched = ix.policy.Score(targetArena.skills[id], subjectSkills)
		}

		it := core.NewItem(targetKind, id)
		it.Similarity = cos
		it.SkillScore = skillScore
		it.MatchedSkills = matched
		it.MatchScore = similarityWeight*cos + skillWeight*skillScore
		it.AddAlgorithm(core.AlgorithmVector)
		items = append(items, it)
	}

	sort.Slice(items, func(a, b int) bool {
		if items[a].MatchScore != items[b].MatchScore {
			return items[a].MatchScore > items[b].MatchScore
		}
		return items[a].ID < items[b].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
