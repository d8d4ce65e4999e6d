package scheduler

import (
	"context"
	"fmt"
	"time"
)

// 数据量告警阈值：低于阈值时推荐质量不可靠。
const (
	minResumes      = 5
	minJobs         = 5
	minApplications = 10
)

// Health 是系统健康快照：就绪状态、数据规模与告警清单。
type Health struct {
	Status       string    `json:"status"` // ok / degraded
	IndexReady   bool      `json:"index_ready"`
	ModelReady   bool      `json:"model_ready"`
	LastTrained  time.Time `json:"last_trained,omitempty"`
	Resumes      int       `json:"resumes"`
	Jobs         int       `json:"jobs"`
	Applications int       `json:"applications"`
	Warnings     []string  `json:"warnings,omitempty"`
}

// Health 汇总系统健康状况。告警不阻断服务，供运维面板展示。
func (c *Controller) Health(ctx context.Context) (*Health, error) {
	h := &Health{
		IndexReady:  c.index.Ready(),
		ModelReady:  c.model.Ready(),
		LastTrained: c.model.LastTrained(),
	}

	resumes, err := c.docs.ListResumes(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := c.docs.ListJobs(ctx, true)
	if err != nil {
		return nil, err
	}
	apps, err := c.inters.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	h.Resumes = len(resumes)
	h.Jobs = len(jobs)
	h.Applications = len(apps)

	if h.Resumes < minResumes {
		h.Warnings = append(h.Warnings, fmt.Sprintf("only %d resumes, recommendations may be unreliable", h.Resumes))
	}
	if h.Jobs < minJobs {
		h.Warnings = append(h.Warnings, fmt.Sprintf("only %d active jobs, recommendations may be unreliable", h.Jobs))
	}
	if h.Applications < minApplications {
		h.Warnings = append(h.Warnings, fmt.Sprintf("only %d applications, interaction model has little signal", h.Applications))
	}
	if !h.IndexReady {
		h.Warnings = append(h.Warnings, "vector index not built")
	}
	if !h.ModelReady {
		h.Warnings = append(h.Warnings, "interaction model not trained")
	}
	if cfg, err := c.configs.GetActive(ctx); err == nil {
		if err := cfg.ValidateWeights(); err != nil {
			h.Warnings = append(h.Warnings, "active config fusion weights do not sum to 1.0")
		}
	}

	h.Status = "ok"
	if len(h.Warnings) > 0 {
		h.Status = "degraded"
	}
	return h, nil
}
