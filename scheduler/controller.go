// Package scheduler 实现后台生命周期控制：启动初始化、定时训练、
// 缓存清理与反馈指标计算，带任务互斥、失败熔断与手动触发。
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/feedback"
	"github.com/rushteam/matchkit/index"
	"github.com/rushteam/matchkit/model"
	"github.com/rushteam/matchkit/pkg/cron"
	"github.com/rushteam/matchkit/recommend"
)

// 后台任务名。
const (
	TaskTrain           = "train"
	TaskInitIndex       = "initialize-index"
	TaskCleanCache      = "clean-cache"
	TaskProcessFeedback = "process-feedback"
)

const (
	// tickInterval 是调度循环的检查周期。
	tickInterval = 60 * time.Second

	// retryDelay 是任务失败后的最小重试间隔。
	retryDelay = 60 * time.Second

	// maxFailures 连续失败达到该次数后挂起任务，等待手动触发恢复。
	maxFailures = 3

	// cacheCleanInterval / feedbackInterval 是周期任务的运行间隔。
	cacheCleanInterval = 3600 * time.Second
	feedbackInterval   = 86400 * time.Second
)

// taskState 是单个任务的运行账本。
type taskState struct {
	running     bool
	suspended   bool
	failures    int
	lastAttempt time.Time
	lastRun     time.Time
	lastError   string
}

// TaskStatus 是任务状态快照。
type TaskStatus struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	Suspended bool      `json:"suspended"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// Controller 驱动推荐系统的后台任务。
type Controller struct {
	index    *index.VectorIndex
	model    *model.Recommender
	recsvc   *recommend.Service
	feedback *feedback.Engine
	configs  core.ConfigStore
	docs     core.DocumentStore
	inters   core.InteractionStore

	log *zap.Logger
	now func() time.Time

	mu            sync.Mutex
	tasks         map[string]*taskState
	lastTrainFire time.Time
	lastCacheRun  time.Time
	lastFeedback  time.Time
}

// ControllerOption 配置 Controller。
type ControllerOption func(*Controller)

// WithLogger 覆盖日志器（默认 Nop）。
func WithLogger(log *zap.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// withClock 供测试替换时钟。
func withClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

func NewController(
	ix *index.VectorIndex,
	m *model.Recommender,
	recsvc *recommend.Service,
	fb *feedback.Engine,
	configs core.ConfigStore,
	docs core.DocumentStore,
	inters core.InteractionStore,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		index:    ix,
		model:    m,
		recsvc:   recsvc,
		feedback: fb,
		configs:  configs,
		docs:     docs,
		inters:   inters,
		log:      zap.NewNop(),
		now:      time.Now,
		tasks: map[string]*taskState{
			TaskTrain:           {},
			TaskInitIndex:       {},
			TaskCleanCache:      {},
			TaskProcessFeedback: {},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run 执行启动初始化并进入调度循环，直到 ctx 取消。
func (c *Controller) Run(ctx context.Context) error {
	c.Startup(ctx)

	c.mu.Lock()
	now := c.now()
	c.lastCacheRun = now
	c.lastFeedback = now
	c.mu.Unlock()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.tick(ctx, c.now())
		}
	}
}

// Startup 做一次性初始化：重建索引、恢复或训练模型。
func (c *Controller) Startup(ctx context.Context) {
	if err := c.execute(ctx, TaskInitIndex, false, c.runInitIndex); err != nil {
		c.log.Warn("startup index build failed", zap.Error(err))
	}

	cfg, err := c.configs.GetOrCreateDefault(ctx)
	if err != nil {
		c.log.Warn("load active config failed", zap.Error(err))
		return
	}
	if err := c.model.Load(ctx); err == nil {
		c.log.Info("interaction model restored from artifacts")
		return
	}
	if cfg.TrainOnStartup {
		if err := c.execute(ctx, TaskTrain, false, c.runTrain); err != nil {
			c.log.Warn("startup training failed", zap.Error(err))
		}
	}
}

// tick 跑一轮调度检查：cron 训练、周期清理、周期指标、索引补偿。
func (c *Controller) tick(ctx context.Context, now time.Time) {
	if cfg, err := c.configs.GetActive(ctx); err == nil && cfg.TrainSchedule != "" {
		match, err := cron.Matches(cfg.TrainSchedule, now)
		if err != nil {
			c.log.Warn("invalid train schedule",
				zap.String("schedule", cfg.TrainSchedule), zap.Error(err))
		} else if match && !sameMinute(c.trainFire(), now) {
			c.setTrainFire(now)
			if err := c.execute(ctx, TaskTrain, false, c.runTrain); err != nil && !core.IsConflict(err) {
				c.log.Warn("scheduled training failed", zap.Error(err))
			}
		}
	}

	c.mu.Lock()
	cacheDue := now.Sub(c.lastCacheRun) >= cacheCleanInterval
	feedbackDue := now.Sub(c.lastFeedback) >= feedbackInterval
	c.mu.Unlock()

	if cacheDue {
		c.mu.Lock()
		c.lastCacheRun = now
		c.mu.Unlock()
		if err := c.execute(ctx, TaskCleanCache, false, c.runCleanCache); err != nil && !core.IsConflict(err) {
			c.log.Warn("cache clean failed", zap.Error(err))
		}
	}
	if feedbackDue {
		c.mu.Lock()
		c.lastFeedback = now
		c.mu.Unlock()
		if err := c.execute(ctx, TaskProcessFeedback, false, c.runProcessFeedback); err != nil && !core.IsConflict(err) {
			c.log.Warn("feedback processing failed", zap.Error(err))
		}
	}

	if c.index.PendingOverflow() {
		if err := c.execute(ctx, TaskInitIndex, false, c.runInitIndex); err != nil && !core.IsConflict(err) {
			c.log.Warn("pending reconcile failed", zap.Error(err))
		}
	}
}

func (c *Controller) trainFire() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTrainFire
}

func (c *Controller) setTrainFire(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTrainFire = t
}

func sameMinute(a, b time.Time) bool {
	return a.Truncate(time.Minute).Equal(b.Truncate(time.Minute))
}

// execute 带互斥、熔断与重试间隔地运行任务。manual 触发会解除挂起。
func (c *Controller) execute(ctx context.Context, name string, manual bool, fn func(context.Context) error) (err error) {
	now := c.now()

	c.mu.Lock()
	st := c.tasks[name]
	if st.running {
		c.mu.Unlock()
		return core.NewDomainError(core.ModuleTask, core.ErrorCodeConflict, "task: "+name+" already running")
	}
	if !manual {
		if st.suspended {
			c.mu.Unlock()
			return core.NewDomainError(core.ModuleTask, core.ErrorCodeConflict, "task: "+name+" suspended after repeated failures")
		}
		if st.failures > 0 && now.Sub(st.lastAttempt) < retryDelay {
			c.mu.Unlock()
			return core.NewDomainError(core.ModuleTask, core.ErrorCodeConflict, "task: "+name+" in retry backoff")
		}
	} else {
		st.suspended = false
		st.failures = 0
	}
	st.running = true
	c.mu.Unlock()

	// 任务 panic 也必须释放锁并计入失败，否则该任务永久卡死。
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task: %s panicked: %v", name, r)
		}
		c.mu.Lock()
		st.running = false
		st.lastAttempt = c.now()
		if err != nil {
			st.failures++
			st.lastError = err.Error()
			if st.failures >= maxFailures {
				st.suspended = true
				c.log.Error("task suspended after repeated failures",
					zap.String("task", name), zap.Int("failures", st.failures))
			}
		} else {
			st.failures = 0
			st.suspended = false
			st.lastError = ""
			st.lastRun = c.now()
		}
		c.mu.Unlock()
	}()

	return fn(ctx)
}

// runTrain 训练交互模型并更新配置的最近训练时间。
func (c *Controller) runTrain(ctx context.Context) error {
	cfg, err := c.configs.GetOrCreateDefault(ctx)
	if err != nil {
		return err
	}
	if err := c.model.Train(ctx, cfg); err != nil {
		return err
	}
	cfg.LastTrained = c.now()
	if err := c.configs.Update(ctx, cfg); err != nil {
		c.log.Warn("record last trained failed", zap.Error(err))
	}
	return nil
}

// runInitIndex 重建（或补偿）文本向量索引。
func (c *Controller) runInitIndex(ctx context.Context) error {
	if c.index.Ready() && !c.index.PendingOverflow() {
		_, err := c.index.ReconcilePending(ctx)
		return err
	}
	return c.index.Rebuild(ctx)
}

// runCleanCache 清扫推荐结果缓存与反馈信号缓存。
func (c *Controller) runCleanCache(ctx context.Context) error {
	removed, err := c.recsvc.CleanCache(ctx)
	if err != nil {
		return err
	}
	signals := c.feedback.CleanCache(ctx)
	c.log.Info("caches cleaned",
		zap.Int("recommendations", removed),
		zap.Int("feedback_signals", signals),
	)
	return nil
}

// runProcessFeedback 计算并落盘反馈指标。
func (c *Controller) runProcessFeedback(ctx context.Context) error {
	_, err := c.feedback.ComputeMetrics(ctx)
	return err
}

// TriggerTrain 手动触发训练；任务运行中返回 CONFLICT。
func (c *Controller) TriggerTrain(ctx context.Context) error {
	return c.execute(ctx, TaskTrain, true, c.runTrain)
}

// TriggerIndexRebuild 手动触发索引重建。
func (c *Controller) TriggerIndexRebuild(ctx context.Context) error {
	return c.execute(ctx, TaskInitIndex, true, func(ctx context.Context) error {
		return c.index.Rebuild(ctx)
	})
}

// TriggerCacheClean 手动触发缓存清理。
func (c *Controller) TriggerCacheClean(ctx context.Context) error {
	return c.execute(ctx, TaskCleanCache, true, c.runCleanCache)
}

// TriggerFeedbackProcess 手动触发反馈指标计算。
func (c *Controller) TriggerFeedbackProcess(ctx context.Context) error {
	return c.execute(ctx, TaskProcessFeedback, true, c.runProcessFeedback)
}

// Status 返回全部任务的状态快照。
func (c *Controller) Status() []TaskStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := []string{TaskTrain, TaskInitIndex, TaskCleanCache, TaskProcessFeedback}
	out := make([]TaskStatus, 0, len(names))
	for _, name := range names {
		st := c.tasks[name]
		out = append(out, TaskStatus{
			Name:      name,
			Running:   st.running,
			Suspended: st.suspended,
			Failures:  st.failures,
			LastRun:   st.lastRun,
			LastError: st.lastError,
		})
	}
	return out
}
