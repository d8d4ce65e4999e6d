// Package model 实现简历↔职位的交互模型：基于申请事件与文本侧特征
// 训练隐因子模型，为"谁申请过什么"提供协同信号。
package model

import (
	"context"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/feature"
)

// Dataset 是一次训练的输入快照：实体 id 映射、交互三元组与侧特征。
// 字段导出以便 gob 持久化。
type Dataset struct {
	ResumeIDs []int64
	JobIDs    []int64

	// Interactions 仅保留两端都在 id 映射内的三元组
	Interactions []core.Interaction

	ResumeFeatures [][]float64
	JobFeatures    [][]float64

	resumeRow map[int64]int
	jobRow    map[int64]int
}

// BuildDataset 从文档与交互存储构建训练数据集。
// 简历或职位列表为空时返回 UNAVAILABLE：没有实体就没有可训练的映射。
func BuildDataset(ctx context.Context, docs core.DocumentStore, inters core.InteractionStore, provider feature.Provider) (*Dataset, error) {
	resumes, err := docs.ListResumes(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := docs.ListJobs(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(resumes) == 0 || len(jobs) == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "model: no resumes or jobs to train on")
	}

	ds := &Dataset{
		ResumeIDs: make([]int64, len(resumes)),
		JobIDs:    make([]int64, len(jobs)),
	}
	for i, r := range resumes {
		ds.ResumeIDs[i] = r.ID
	}
	for i, j := range jobs {
		ds.JobIDs[i] = j.ID
	}
	ds.buildRowIndex()

	all, err := inters.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range all {
		if _, ok := ds.resumeRow[it.ResumeID]; !ok {
			continue
		}
		if _, ok := ds.jobRow[it.JobID]; !ok {
			continue
		}
		if it.Strength == 0 {
			it.Strength = 1.0
		}
		ds.Interactions = append(ds.Interactions, it)
	}

	if provider != nil {
		if ds.ResumeFeatures, err = provider.FitResumes(ctx, resumes); err != nil {
			return nil, err
		}
		if ds.JobFeatures, err = provider.FitJobs(ctx, jobs); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (ds *Dataset) buildRowIndex() {
	ds.resumeRow = make(map[int64]int, len(ds.ResumeIDs))
	for i, id := range ds.ResumeIDs {
		ds.resumeRow[id] = i
	}
	ds.jobRow = make(map[int64]int, len(ds.JobIDs))
	for i, id := range ds.JobIDs {
		ds.jobRow[id] = i
	}
}

// ResumeRow 返回简历在数据集中的行号。
func (ds *Dataset) ResumeRow(id int64) (int, bool) {
	if ds.resumeRow == nil {
		ds.buildRowIndex()
	}
	i, ok := ds.resumeRow[id]
	return i, ok
}

// JobRow 返回职位在数据集中的行号。
func (ds *Dataset) JobRow(id int64) (int, bool) {
	if ds.jobRow == nil {
		ds.buildRowIndex()
	}
	i, ok := ds.jobRow[id]
	return i, ok
}
