package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/feature"
	"github.com/rushteam/matchkit/store"
)

func corruptArtifact(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, factorsFile), []byte("not a gob stream"), 0o644); err != nil {
		t.Fatalf("corrupt artifact: %v", err)
	}
}

func seedDocs(t *testing.T) *store.MemoryDocuments {
	t.Helper()
	docs := store.NewMemoryDocuments()
	docs.PutResume(&core.ResumeRecord{ID: 1, Title: "backend engineer", Summary: "python services docker"})
	docs.PutResume(&core.ResumeRecord{ID: 2, Title: "frontend engineer", Summary: "react javascript applications"})
	docs.PutResume(&core.ResumeRecord{ID: 3, Title: "data engineer", Summary: "python pipelines airflow spark"})
	docs.PutJob(&core.JobRecord{ID: 10, Title: "backend engineer", Description: "python services", Requirements: "docker python", Active: true})
	docs.PutJob(&core.JobRecord{ID: 11, Title: "frontend developer", Description: "react applications", Requirements: "javascript react", Active: true})
	docs.PutJob(&core.JobRecord{ID: 12, Title: "data engineer", Description: "python pipelines", Requirements: "spark airflow", Active: true})
	return docs
}

func TestBuildDataset(t *testing.T) {
	ctx := context.Background()
	docs := seedDocs(t)
	docs.AddApplication(1, 10, 1.0)
	docs.AddApplication(2, 11, 1.0)
	docs.AddApplication(99, 10, 1.0)  // 未知简历：丢弃
	docs.AddApplication(1, 999, 1.0)  // 未知职位：丢弃

	ds, err := BuildDataset(ctx, docs, docs, feature.NewTextProvider())
	if err != nil {
		t.Fatalf("BuildDataset: %v", err)
	}
	if len(ds.ResumeIDs) != 3 || len(ds.JobIDs) != 3 {
		t.Errorf("dataset size = %d resumes / %d jobs, want 3/3", len(ds.ResumeIDs), len(ds.JobIDs))
	}
	if len(ds.Interactions) != 2 {
		t.Errorf("interactions = %d, want 2 (unknown ids dropped)", len(ds.Interactions))
	}
	if len(ds.ResumeFeatures) != 3 || len(ds.JobFeatures) != 3 {
		t.Error("side feature matrices must align with id lists")
	}
}

func TestBuildDatasetEmpty(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryDocuments()
	if _, err := BuildDataset(ctx, docs, docs, nil); !core.IsUnavailable(err) {
		t.Errorf("BuildDataset on empty stores error = %v, want unavailable", err)
	}
}

func TestTrainAndScore(t *testing.T) {
	ctx := context.Background()
	docs := seedDocs(t)
	// 简历 1 强烈偏好职位 12
	for i := 0; i < 5; i++ {
		docs.AddApplication(1, 12, 1.0)
	}
	docs.AddApplication(2, 11, 1.0)

	rec := NewRecommender(docs, docs, feature.NewTextProvider())
	if rec.Ready() {
		t.Fatal("recommender should not be ready before training")
	}
	if _, err := rec.ScoreJobsForResume(ctx, 1, 10); !core.IsUnavailable(err) {
		t.Errorf("scoring before training error = %v, want unavailable", err)
	}

	cfg := core.DefaultTuningConfig()
	cfg.Epochs = 60
	if err := rec.Train(ctx, cfg); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !rec.Ready() {
		t.Fatal("recommender should be ready after training")
	}
	if rec.LastTrained().IsZero() {
		t.Error("LastTrained should be set after training")
	}

	items, err := rec.ScoreJobsForResume(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ScoreJobsForResume: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].ID != 12 {
		t.Errorf("top job = %d, want 12 (repeatedly applied)", items[0].ID)
	}
	for _, it := range items {
		if it.MatchScore < 0 || it.MatchScore > 1 {
			t.Errorf("score %v out of [0, 1]", it.MatchScore)
		}
		if !it.HasAlgorithm(core.AlgorithmInteraction) {
			t.Error("item should carry the interaction algorithm tag")
		}
	}
}

func TestColdStartReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	docs := seedDocs(t)
	docs.AddApplication(1, 10, 1.0)

	obs, logs := observer.New(zapcore.DebugLevel)
	rec := NewRecommender(docs, docs, feature.NewTextProvider(), WithLogger(zap.New(obs)))
	if err := rec.Train(ctx, core.DefaultTuningConfig()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	// 训练后新增的简历不在映射中
	docs.PutResume(&core.ResumeRecord{ID: 4, Title: "new resume"})
	items, err := rec.ScoreJobsForResume(ctx, 4, 10)
	if err != nil {
		t.Fatalf("ScoreJobsForResume: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("cold-start items = %d, want 0", len(items))
	}
	if logs.FilterMessage("cold-start resume, retrain to cover it").Len() != 1 {
		t.Error("cold-start subject should be logged as needing retraining")
	}
}

func TestScoreSkipsDeletedRecords(t *testing.T) {
	ctx := context.Background()
	docs := seedDocs(t)
	docs.AddApplication(1, 10, 1.0)

	rec := NewRecommender(docs, docs, feature.NewTextProvider())
	if err := rec.Train(ctx, core.DefaultTuningConfig()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	docs.DeleteJob(11)
	items, err := rec.ScoreJobsForResume(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ScoreJobsForResume: %v", err)
	}
	for _, it := range items {
		if it.ID == 11 {
			t.Error("deleted job must not appear in scored items")
		}
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	docs := seedDocs(t)
	docs.AddApplication(1, 12, 1.0)

	rec := NewRecommender(docs, docs, feature.NewTextProvider(), WithArtifactDir(dir))
	if err := rec.Train(ctx, core.DefaultTuningConfig()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	want, err := rec.ScoreJobsForResume(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ScoreJobsForResume: %v", err)
	}

	restored := NewRecommender(docs, docs, feature.NewTextProvider(), WithArtifactDir(dir))
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := restored.ScoreJobsForResume(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ScoreJobsForResume after load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("restored items = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("restored order differs at %d: %d vs %d", i, got[i].ID, want[i].ID)
		}
		if diff := got[i].MatchScore - want[i].MatchScore; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("restored score differs at %d: %v vs %v", i, got[i].MatchScore, want[i].MatchScore)
		}
	}
}

func TestLoadCorruptArtifactsCleansUp(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	docs := seedDocs(t)

	rec := NewRecommender(docs, docs, feature.NewTextProvider(), WithArtifactDir(dir))
	if err := rec.Train(ctx, core.DefaultTuningConfig()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	corruptArtifact(t, dir)
	restored := NewRecommender(docs, docs, feature.NewTextProvider(), WithArtifactDir(dir))
	if err := restored.Load(ctx); !core.IsNotFound(err) {
		t.Errorf("Load of corrupt artifacts error = %v, want not found", err)
	}
	// 损坏的整套工件已被清除，再次加载同样失败但不会读到半截数据
	if err := restored.Load(ctx); !core.IsNotFound(err) {
		t.Errorf("second Load error = %v, want not found", err)
	}
}

func TestLoadRejectsPartialArtifactSet(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	docs := seedDocs(t)

	rec := NewRecommender(docs, docs, feature.NewTextProvider(), WithArtifactDir(dir))
	if err := rec.Train(ctx, core.DefaultTuningConfig()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	// 三件套缺一视为未训练，残余工件整套清除
	if err := os.Remove(filepath.Join(dir, vectorizersFile)); err != nil {
		t.Fatalf("remove vectorizers artifact: %v", err)
	}
	restored := NewRecommender(docs, docs, feature.NewTextProvider(), WithArtifactDir(dir))
	if err := restored.Load(ctx); !core.IsNotFound(err) {
		t.Errorf("Load with missing vectorizers artifact error = %v, want not found", err)
	}
	if restored.Ready() {
		t.Error("partial artifact set must not produce a ready model")
	}
	for _, name := range []string{factorsFile, datasetFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed with the partial set, stat err = %v", name, err)
		}
	}
}

func TestTrainLossVariants(t *testing.T) {
	ctx := context.Background()
	for _, loss := range []string{core.LossWARP, core.LossBPR, core.LossLogistic} {
		t.Run(loss, func(t *testing.T) {
			docs := seedDocs(t)
			docs.AddApplication(2, 11, 1.0)
			rec := NewRecommender(docs, docs, feature.NewTextProvider())
			cfg := core.DefaultTuningConfig()
			cfg.Loss = loss
			if err := rec.Train(ctx, cfg); err != nil {
				t.Fatalf("Train(%s): %v", loss, err)
			}
			if !rec.Ready() {
				t.Errorf("Train(%s) should produce a ready model", loss)
			}
		})
	}
}
