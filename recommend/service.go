// Package recommend 实现推荐编排：召回 fan-out、加权融合、规则过滤、
// 结果缓存与反馈重排。
package recommend

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/pkg/dsl"
	"github.com/rushteam/matchkit/recall"
)

// candidateFactor：召回阶段多取候选，留出过滤与去重的余量。
const candidateFactor = 1.5

// DefaultSourceTimeout 是单个召回源的默认超时。
const DefaultSourceTimeout = 5 * time.Second

// Adjuster 在排序后按用户反馈调整分数（由 feedback 包实现）。
type Adjuster interface {
	ApplyToRecommendations(ctx context.Context, subjectID int64, items []*core.Item) ([]*core.Item, error)
}

// Service 是推荐编排器：对接召回源、配置存储、结果缓存与反馈引擎。
type Service struct {
	docs    core.DocumentStore
	configs core.ConfigStore
	sources []recall.Source

	cache    *Cache
	adjuster Adjuster
	timeout  time.Duration
	log      *zap.Logger

	ruleMu sync.Mutex
	rules  map[string]*dsl.Rule
}

// ServiceOption 配置 Service。
type ServiceOption func(*Service)

// WithCache 启用推荐结果缓存。
func WithCache(c *Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithAdjuster 启用反馈重排。
func WithAdjuster(a Adjuster) ServiceOption {
	return func(s *Service) { s.adjuster = a }
}

// WithSourceTimeout 覆盖单源超时。
func WithSourceTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithLogger 覆盖日志器（默认 Nop）。
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

func NewService(docs core.DocumentStore, configs core.ConfigStore, sources []recall.Source, opts ...ServiceOption) *Service {
	s := &Service{
		docs:    docs,
		configs: configs,
		sources: sources,
		timeout: DefaultSourceTimeout,
		log:     zap.NewNop(),
		rules:   make(map[string]*dsl.Rule),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecommendJobs 为简历推荐职位。limit <= 0 时使用配置的结果数上限。
func (s *Service) RecommendJobs(ctx context.Context, resumeID int64, limit int) ([]*core.Item, error) {
	if _, err := s.docs.GetResume(ctx, resumeID); err != nil {
		return nil, err
	}
	return s.recommend(ctx, core.KindResume, resumeID, limit)
}

// RecommendResumes 为职位推荐简历。职位必须处于活跃状态。
func (s *Service) RecommendResumes(ctx context.Context, jobID int64, limit int) ([]*core.Item, error) {
	job, err := s.docs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Active {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidInput, "recommend: job is not active")
	}
	return s.recommend(ctx, core.KindJob, jobID, limit)
}

func (s *Service) recommend(ctx context.Context, kind core.Kind, subjectID int64, limit int) ([]*core.Item, error) {
	cfg, err := s.configs.GetOrCreateDefault(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = cfg.MaxRecommendations
	}
	if limit <= 0 {
		limit = 10
	}

	var items []*core.Item
	if s.cache != nil {
		items = s.cache.Get(ctx, kind, subjectID, cfg)
	}
	if items == nil {
		items, err = s.compute(ctx, kind, subjectID, limit, cfg)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Put(ctx, kind, subjectID, cfg, items); err != nil {
				s.log.Warn("cache recommendations failed", zap.Error(err))
			}
		}
	}

	// 反馈调整在缓存之后应用：新反馈即刻生效，且不污染缓存条目
	items = core.CloneItems(items)
	if s.adjuster != nil {
		adjusted, err := s.adjuster.ApplyToRecommendations(ctx, subjectID, items)
		if err != nil {
			s.log.Warn("feedback adjustment failed", zap.Error(err))
		} else {
			items = adjusted
		}
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// compute 走完整链路：fan-out 召回、加权融合、规则过滤、详情填充。
// 返回的是截断前的完整清单，截断在缓存命中路径统一进行。
func (s *Service) compute(ctx context.Context, kind core.Kind, subjectID int64, limit int, cfg *core.TuningConfig) ([]*core.Item, error) {
	fetch := int(float64(limit)*candidateFactor + 0.5)
	if fetch < limit {
		fetch = limit
	}

	bySource := s.fanout(ctx, kind, subjectID, fetch)
	fused := fuse(bySource, cfg)

	rule, err := s.compileRule(cfg.FilterRule)
	if err != nil {
		s.log.Warn("invalid filter rule, skipping",
			zap.String("rule", cfg.FilterRule), zap.Error(err))
		rule = nil
	}

	ruleCtx := map[string]any{
		"kind":       string(kind),
		"subject_id": subjectID,
		"limit":      limit,
	}
	out := make([]*core.Item, 0, len(fused))
	for _, it := range fused {
		if !s.hydrate(ctx, it) {
			continue
		}
		if rule != nil {
			keep, err := rule.Evaluate(it, ruleCtx)
			if err != nil {
				s.log.Warn("filter rule evaluation failed", zap.Error(err))
			} else if !keep {
				continue
			}
		}
		out = append(out, it)
		if len(out) >= fetch {
			break
		}
	}
	return out, nil
}

// fanout 并发执行就绪的召回源，单源失败或超时不影响其余来源。
func (s *Service) fanout(ctx context.Context, kind core.Kind, subjectID int64, fetch int) map[string][]*core.Item {
	var mu sync.Mutex
	bySource := make(map[string][]*core.Item)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, src := range s.sources {
		if !src.Ready() {
			s.log.Debug("recall source not ready, skipped", zap.String("source", src.Name()))
			continue
		}
		src := src
		eg.Go(func() error {
			recallCtx := egCtx
			if s.timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, s.timeout)
				defer cancel()
			}
			items, err := src.Recall(recallCtx, recall.Request{
				Kind:      kind,
				SubjectID: subjectID,
				Limit:     fetch,
			})
			if err != nil {
				s.log.Warn("recall source failed",
					zap.String("source", src.Name()), zap.Error(err))
				return nil
			}
			mu.Lock()
			bySource[src.Name()] = items
			mu.Unlock()
			return nil
		})
	}
	eg.Wait()
	return bySource
}

// hydrate 填充展示字段；记录已删除返回 false，非活跃职位候选同样剔除。
func (s *Service) hydrate(ctx context.Context, it *core.Item) bool {
	switch it.Kind {
	case core.KindJob:
		job, err := s.docs.GetJob(ctx, it.ID)
		if err != nil {
			return false
		}
		if !job.Active {
			return false
		}
		it.Title = job.Title
		it.Company = job.Company
		it.Location = job.Location
	case core.KindResume:
		resume, err := s.docs.GetResume(ctx, it.ID)
		if err != nil {
			return false
		}
		it.Title = resume.Title
		it.User = resume.UserName
		it.UserEmail = resume.UserEmail
	}
	return true
}

func (s *Service) compileRule(expr string) (*dsl.Rule, error) {
	if expr == "" {
		return nil, nil
	}
	s.ruleMu.Lock()
	defer s.ruleMu.Unlock()
	if rule, ok := s.rules[expr]; ok {
		return rule, nil
	}
	rule, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	s.rules[expr] = rule
	return rule, nil
}
