package model

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rushteam/matchkit/feature"
)

// 模型工件文件名：三件套缺一不可，互相校验通过才算有效。
const (
	factorsFile     = "interaction_model.gob"
	datasetFile     = "interaction_dataset.gob"
	vectorizersFile = "interaction_vectorizers.gob"
)

// saveArtifacts 持久化训练产物三件套。写入通过临时文件 + rename，
// 避免进程中断留下半截文件。
func saveArtifacts(dir string, ds *Dataset, f *Factors, tp *feature.TextProvider) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("model: create artifact dir: %w", err)
	}
	if err := writeGob(filepath.Join(dir, factorsFile), f); err != nil {
		return err
	}
	if err := writeGob(filepath.Join(dir, datasetFile), ds); err != nil {
		return err
	}
	// 三件套必须齐全：外部特征源不产出词表时写入空词表占位，
	// 加载端据此区分"未产出"与"丢失"。
	if tp == nil {
		tp = &feature.TextProvider{}
	}
	return writeGob(filepath.Join(dir, vectorizersFile), tp)
}

// loadArtifacts 加载并校验训练产物。任何一件缺失、损坏或互相不一致
// 时删除整套工件并返回错误，下次训练重新生成。
func loadArtifacts(dir string) (*Dataset, *Factors, *feature.TextProvider, error) {
	var f Factors
	var ds Dataset
	var tp feature.TextProvider

	if err := readGob(filepath.Join(dir, factorsFile), &f); err != nil {
		removeArtifacts(dir)
		return nil, nil, nil, fmt.Errorf("model: load factors: %w", err)
	}
	if err := readGob(filepath.Join(dir, datasetFile), &ds); err != nil {
		removeArtifacts(dir)
		return nil, nil, nil, fmt.Errorf("model: load dataset: %w", err)
	}
	if err := readGob(filepath.Join(dir, vectorizersFile), &tp); err != nil {
		removeArtifacts(dir)
		return nil, nil, nil, fmt.Errorf("model: load vectorizers: %w", err)
	}

	if err := verifyArtifacts(&ds, &f); err != nil {
		removeArtifacts(dir)
		return nil, nil, nil, err
	}
	ds.buildRowIndex()
	return &ds, &f, &tp, nil
}

// verifyArtifacts 校验数据集与因子矩阵的行数一致。
func verifyArtifacts(ds *Dataset, f *Factors) error {
	if len(f.ResumeEmb) != len(ds.ResumeIDs) || len(f.ResumeBias) != len(ds.ResumeIDs) {
		return fmt.Errorf("model: artifact mismatch: %d resume factors for %d resumes", len(f.ResumeEmb), len(ds.ResumeIDs))
	}
	if len(f.JobEmb) != len(ds.JobIDs) || len(f.JobBias) != len(ds.JobIDs) {
		return fmt.Errorf("model: artifact mismatch: %d job factors for %d jobs", len(f.JobEmb), len(ds.JobIDs))
	}
	if f.Dim <= 0 {
		return fmt.Errorf("model: artifact mismatch: non-positive embedding dim %d", f.Dim)
	}
	for _, row := range f.ResumeEmb {
		if len(row) != f.Dim {
			return fmt.Errorf("model: artifact mismatch: resume embedding dim %d != %d", len(row), f.Dim)
		}
	}
	for _, row := range f.JobEmb {
		if len(row) != f.Dim {
			return fmt.Errorf("model: artifact mismatch: job embedding dim %d != %d", len(row), f.Dim)
		}
	}
	return nil
}

// removeArtifacts 删除整套工件（容忍不存在）。
func removeArtifacts(dir string) {
	for _, name := range []string{factorsFile, datasetFile, vectorizersFile} {
		os.Remove(filepath.Join(dir, name))
	}
}

func writeGob(path string, v any) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("model: create %s: %w", tmp, err)
	}
	if err := gob.NewEncoder(file).Encode(v); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("model: encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readGob(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(v)
}
