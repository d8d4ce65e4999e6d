package feature

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/matchkit/core"
)

// FeastProvider 从 Feast Feature Server 拉取预计算的侧特征。
// 适用于特征工程由独立管道维护的部署形态；特征缺失的实体按 0 填充。
type FeastProvider struct {
	client  *feastsdk.GrpcClient
	project string

	// ResumeFeatures / JobFeatures 是特征引用列表（如 "resume_stats:seniority"），
	// 顺序即输出矩阵的列顺序。
	resumeRefs []string
	jobRefs    []string
}

// FeastConfig 是 FeastProvider 的连接与特征配置。
type FeastConfig struct {
	Host       string
	Port       int
	Project    string
	ResumeRefs []string
	JobRefs    []string
}

func NewFeastProvider(cfg FeastConfig) (*FeastProvider, error) {
	if cfg.Port == 0 {
		cfg.Port = 6565
	}
	if len(cfg.ResumeRefs) == 0 || len(cfg.JobRefs) == 0 {
		return nil, fmt.Errorf("feature: feast provider requires resume and job feature refs")
	}
	client, err := feastsdk.NewGrpcClient(cfg.Host, cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("feature: feast client: %w", err)
	}
	return &FeastProvider{
		client:     client,
		project:    cfg.Project,
		resumeRefs: cfg.ResumeRefs,
		jobRefs:    cfg.JobRefs,
	}, nil
}

func (p *FeastProvider) Name() string { return "feast" }

func (p *FeastProvider) FitResumes(ctx context.Context, resumes []*core.ResumeRecord) ([][]float64, error) {
	ids := make([]int64, len(resumes))
	for i, r := range resumes {
		ids[i] = r.ID
	}
	return p.fetch(ctx, "resume_id", ids, p.resumeRefs)
}

func (p *FeastProvider) FitJobs(ctx context.Context, jobs []*core.JobRecord) ([][]float64, error) {
	ids := make([]int64, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return p.fetch(ctx, "job_id", ids, p.jobRefs)
}

func (p *FeastProvider) fetch(ctx context.Context, entityKey string, ids []int64, refs []string) ([][]float64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	entities := make([]feastsdk.Row, len(ids))
	for i, id := range ids {
		entities[i] = feastsdk.Row{entityKey: feastsdk.Int64Val(id)}
	}
	resp, err := p.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: refs,
		Entities: entities,
		Project:  p.project,
	})
	if err != nil {
		return nil, fmt.Errorf("feature: feast get online features: %w", err)
	}
	rows := resp.Rows()
	if len(rows) != len(ids) {
		return nil, fmt.Errorf("feature: feast row count mismatch: want %d, got %d", len(ids), len(rows))
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		vec := make([]float64, len(refs))
		for j, ref := range refs {
			val, ok := row[ref]
			if !ok || val == nil {
				continue
			}
			vec[j] = asFloat(val)
		}
		out[i] = vec
	}
	return out, nil
}

func asFloat(v *feasttypes.Value) float64 {
	switch x := v.GetVal().(type) {
	case *feasttypes.Value_DoubleVal:
		return x.DoubleVal
	case *feasttypes.Value_FloatVal:
		return float64(x.FloatVal)
	case *feasttypes.Value_Int64Val:
		return float64(x.Int64Val)
	case *feasttypes.Value_Int32Val:
		return float64(x.Int32Val)
	case *feasttypes.Value_BoolVal:
		if x.BoolVal {
			return 1
		}
		return 0
	}
	return 0
}

// Close 释放客户端资源。
func (p *FeastProvider) Close() error {
	p.client = nil
	return nil
}

var _ Provider = (*FeastProvider)(nil)
