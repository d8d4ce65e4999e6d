// Package feature 为交互模型训练提供简历/职位的侧特征（side feature）。
//
// 内置两种来源：
//   - TextProvider：本地 TF-IDF 文本特征（默认）
//   - FeastProvider：从 Feast 特征平台获取预计算特征
package feature

import (
	"context"
	"fmt"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/pkg/textproc"
)

// Provider 按记录列表产出逐行对齐的特征矩阵。
// 行顺序与输入记录顺序一致；所有行维度相同。
type Provider interface {
	Name() string

	// FitResumes / FitJobs 在全量语料上拟合（如需要）并返回特征矩阵。
	FitResumes(ctx context.Context, resumes []*core.ResumeRecord) ([][]float64, error)
	FitJobs(ctx context.Context, jobs []*core.JobRecord) ([][]float64, error)
}

// DefaultSideFeatures 是侧特征词表的默认上限。
const DefaultSideFeatures = 1000

// TextProvider 用两份独立的 TF-IDF 词表分别编码简历与职位。
// 拟合后的词表随模型工件一起持久化，保证推理与训练维度一致。
type TextProvider struct {
	MaxFeatures int

	// 导出字段以便 gob 持久化
	ResumeVec *textproc.Vectorizer
	JobVec    *textproc.Vectorizer
}

func NewTextProvider() *TextProvider {
	return &TextProvider{MaxFeatures: DefaultSideFeatures}
}

func (p *TextProvider) Name() string { return "text" }

func (p *TextProvider) FitResumes(ctx context.Context, resumes []*core.ResumeRecord) ([][]float64, error) {
	docs := make([]string, len(resumes))
	for i, r := range resumes {
		docs[i] = r.Corpus()
	}
	vec := textproc.NewVectorizer(p.maxFeatures())
	rows, err := vec.Fit(docs)
	if err != nil {
		return nil, fmt.Errorf("feature: fit resume corpus: %w", err)
	}
	p.ResumeVec = vec
	return rows, nil
}

func (p *TextProvider) FitJobs(ctx context.Context, jobs []*core.JobRecord) ([][]float64, error) {
	docs := make([]string, len(jobs))
	for i, j := range jobs {
		docs[i] = j.Corpus()
	}
	vec := textproc.NewVectorizer(p.maxFeatures())
	rows, err := vec.Fit(docs)
	if err != nil {
		return nil, fmt.Errorf("feature: fit job corpus: %w", err)
	}
	p.JobVec = vec
	return rows, nil
}

func (p *TextProvider) maxFeatures() int {
	if p.MaxFeatures > 0 {
		return p.MaxFeatures
	}
	return DefaultSideFeatures
}

var _ Provider = (*TextProvider)(nil)
