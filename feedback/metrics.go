package feedback

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/matchkit/core"
)

// metricsWindow 是指标聚合的回看窗口。
const metricsWindow = 30 * 24 * time.Hour

// OverallAlgorithm 是跨算法汇总行的标签。
const OverallAlgorithm = "overall"

// Summary 是单个算法在窗口内的聚合结果。
type Summary struct {
	Algorithm    string  `json:"algorithm"`
	Total        int     `json:"total"`
	Positive     int     `json:"positive"`
	Negative     int     `json:"negative"`
	PositiveRate float64 `json:"positive_rate"`
	NegativeRate float64 `json:"negative_rate"`
	AvgRating    float64 `json:"avg_rating"`
	RatingCount  int     `json:"rating_count"`
}

// ComputeMetrics 聚合最近 30 天的反馈：每个出现过的算法一份汇总，
// 外加一份 overall 跨算法汇总，全部落盘为指标事实行。
// 分母为零的比率按 0 处理。
func (e *Engine) ComputeMetrics(ctx context.Context) ([]Summary, error) {
	since := e.now().Add(-metricsWindow)
	records, err := e.store.List(ctx, core.FeedbackFilter{Since: since})
	if err != nil {
		return nil, err
	}

	algos, err := e.store.Algorithms(ctx, since)
	if err != nil {
		return nil, err
	}

	var configID int64
	if active, err := e.configs.GetActive(ctx); err == nil {
		configID = active.ID
	}

	summaries := make([]Summary, 0, len(algos)+1)
	for _, algo := range algos {
		summaries = append(summaries, summarize(algo, records))
	}
	summaries = append(summaries, summarize(OverallAlgorithm, records))

	now := e.now()
	for _, s := range summaries {
		if err := e.persistSummary(ctx, now, configID, s); err != nil {
			e.log.Warn("persist feedback metric failed",
				zap.String("algorithm", s.Algorithm), zap.Error(err))
		}
	}
	return summaries, nil
}

// summarize 聚合单个算法的记录；algo 为 overall 时统计全部记录。
func summarize(algo string, records []*core.FeedbackRecord) Summary {
	s := Summary{Algorithm: algo}
	var ratingSum float64
	for _, rec := range records {
		if algo != OverallAlgorithm && rec.Algorithm != algo {
			continue
		}
		s.Total++
		switch {
		case positiveKinds[rec.Kind]:
			s.Positive++
		case negativeKinds[rec.Kind]:
			s.Negative++
		}
		if rec.Kind == KindExplicit {
			ratingSum += rec.Rating
			s.RatingCount++
		}
	}
	if s.Total > 0 {
		s.PositiveRate = float64(s.Positive) / float64(s.Total)
		s.NegativeRate = float64(s.Negative) / float64(s.Total)
	}
	if s.RatingCount > 0 {
		s.AvgRating = ratingSum / float64(s.RatingCount)
	}
	return s
}

func (e *Engine) persistSummary(ctx context.Context, at time.Time, configID int64, s Summary) error {
	details, _ := json.Marshal(s)
	for metric, value := range map[string]float64{
		"total":         float64(s.Total),
		"positive_rate": s.PositiveRate,
		"negative_rate": s.NegativeRate,
		"avg_rating":    s.AvgRating,
	} {
		m := &core.FeedbackMetric{
			Date:      at,
			Algorithm: s.Algorithm,
			Metric:    metric,
			Value:     value,
			ConfigID:  configID,
			Details:   string(details),
		}
		if err := e.store.InsertMetric(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
