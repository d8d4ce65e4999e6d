package model

import (
	"math"
	"math/rand"
	"sync"

	"github.com/rushteam/matchkit/core"
)

// Factors 是训练产物：两侧实体的隐向量与偏置。
// 行顺序与 Dataset 的 id 映射一一对应。
type Factors struct {
	Dim        int
	ResumeEmb  [][]float64
	JobEmb     [][]float64
	ResumeBias []float64
	JobBias    []float64
}

// Score 返回行号对 (resumeRow, jobRow) 的原始打分。
func (f *Factors) Score(resumeRow, jobRow int) float64 {
	s := f.ResumeBias[resumeRow] + f.JobBias[jobRow]
	re := f.ResumeEmb[resumeRow]
	je := f.JobEmb[jobRow]
	for k := 0; k < f.Dim; k++ {
		s += re[k] * je[k]
	}
	return s
}

// warpMaxTrials 是 WARP 负采样的单次最大尝试数。
const warpMaxTrials = 20

// trainFactors 在数据集上训练隐因子模型。
//
// 损失函数：
//   - warp：成对排序，采样负例直到违反间隔，按违约采样次数缩放步长
//   - bpr：成对排序，单次均匀负采样
//   - logistic：逐点二分类，正例为观测交互，负例均匀采样
//
// 初始化用侧特征的随机投影加噪声，保证同一数据集、同一种子下结果确定。
func trainFactors(ds *Dataset, cfg *core.TuningConfig, seed int64) *Factors {
	dim := cfg.EmbeddingDim
	if dim <= 0 {
		dim = 64
	}
	rng := rand.New(rand.NewSource(seed))

	f := &Factors{
		Dim:        dim,
		ResumeEmb:  initEmbeddings(rng, ds.ResumeFeatures, len(ds.ResumeIDs), dim),
		JobEmb:     initEmbeddings(rng, ds.JobFeatures, len(ds.JobIDs), dim),
		ResumeBias: make([]float64, len(ds.ResumeIDs)),
		JobBias:    make([]float64, len(ds.JobIDs)),
	}
	if len(ds.Interactions) == 0 {
		return f
	}

	lr := cfg.LearningRate
	if lr <= 0 {
		lr = 0.05
	}
	epochs := cfg.Epochs
	if epochs <= 0 {
		epochs = 30
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = 1
	}

	for epoch := 0; epoch < epochs; epoch++ {
		runEpoch(ds, f, cfg, lr, threads, seed+int64(epoch)+1)
	}
	return f
}

// runEpoch 并行跑一轮交互（hogwild：分片无锁更新，容忍少量写冲突）。
func runEpoch(ds *Dataset, f *Factors, cfg *core.TuningConfig, lr float64, threads int, seed int64) {
	n := len(ds.Interactions)
	if threads > n {
		threads = n
	}
	chunk := (n + threads - 1) / threads

	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		lo := t * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int, rng *rand.Rand) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				it := ds.Interactions[i]
				ri, _ := ds.ResumeRow(it.ResumeID)
				ji, _ := ds.JobRow(it.JobID)
				switch cfg.Loss {
				case core.LossBPR:
					stepBPR(ds, f, ri, ji, it.Strength, lr, cfg, rng)
				case core.LossLogistic:
					stepLogistic(ds, f, ri, ji, it.Strength, lr, cfg, rng)
				default: // warp
					stepWARP(ds, f, ri, ji, it.Strength, lr, cfg, rng)
				}
			}
		}(lo, hi, rand.New(rand.NewSource(seed+int64(t))))
	}
	wg.Wait()
}

// stepWARP：采样负例直到 score(neg)+1 > score(pos)，步长乘以
// ln((J-1)/trials)，低排名违约获得更大更新。
func stepWARP(ds *Dataset, f *Factors, ri, ji int, strength, lr float64, cfg *core.TuningConfig, rng *rand.Rand) {
	nJobs := len(ds.JobIDs)
	if nJobs < 2 {
		return
	}
	pos := f.Score(ri, ji)
	for trial := 1; trial <= warpMaxTrials; trial++ {
		neg := rng.Intn(nJobs)
		if neg == ji {
			continue
		}
		if f.Score(ri, neg)+1 <= pos {
			continue
		}
		rank := math.Log(float64(nJobs-1) / float64(trial))
		if rank < 0 {
			rank = 0
		}
		applyPairwise(f, ri, ji, neg, lr*rank*strength, cfg)
		return
	}
}

// stepBPR：单次均匀负采样，sigmoid 梯度。
func stepBPR(ds *Dataset, f *Factors, ri, ji int, strength, lr float64, cfg *core.TuningConfig, rng *rand.Rand) {
	nJobs := len(ds.JobIDs)
	if nJobs < 2 {
		return
	}
	neg := rng.Intn(nJobs)
	if neg == ji {
		neg = (neg + 1) % nJobs
	}
	x := f.Score(ri, ji) - f.Score(ri, neg)
	grad := sigmoid(-x)
	applyPairwise(f, ri, ji, neg, lr*grad*strength, cfg)
}

// stepLogistic：正例 + 一个均匀负例的逐点逻辑回归。
func stepLogistic(ds *Dataset, f *Factors, ri, ji int, strength, lr float64, cfg *core.TuningConfig, rng *rand.Rand) {
	applyPointwise(f, ri, ji, 1, lr*strength, cfg)
	nJobs := len(ds.JobIDs)
	if nJobs < 2 {
		return
	}
	neg := rng.Intn(nJobs)
	if neg == ji {
		neg = (neg + 1) % nJobs
	}
	applyPointwise(f, ri, neg, 0, lr, cfg)
}

// applyPairwise 把正例推高、负例推低。
func applyPairwise(f *Factors, ri, pos, neg int, step float64, cfg *core.TuningConfig) {
	re := f.ResumeEmb[ri]
	pe := f.JobEmb[pos]
	ne := f.JobEmb[neg]
	for k := 0; k < f.Dim; k++ {
		gr := pe[k] - ne[k]
		gp := re[k]
		re[k] += step*gr - cfg.UserAlpha*re[k]
		pe[k] += step*gp - cfg.ItemAlpha*pe[k]
		ne[k] += -step*gp - cfg.ItemAlpha*ne[k]
	}
	f.JobBias[pos] += step
	f.JobBias[neg] -= step
}

// applyPointwise 逐点逻辑回归更新，target ∈ {0, 1}。
func applyPointwise(f *Factors, ri, ji int, target float64, lr float64, cfg *core.TuningConfig) {
	pred := sigmoid(f.Score(ri, ji))
	g := lr * (target - pred)
	re := f.ResumeEmb[ri]
	je := f.JobEmb[ji]
	for k := 0; k < f.Dim; k++ {
		rk := re[k]
		re[k] += g*je[k] - cfg.UserAlpha*rk
		je[k] += g*rk - cfg.ItemAlpha*je[k]
	}
	f.ResumeBias[ri] += g
	f.JobBias[ji] += g
}

// initEmbeddings 用侧特征的固定随机投影初始化隐向量，无特征时退回
// 小幅随机初始化。
func initEmbeddings(rng *rand.Rand, features [][]float64, n, dim int) [][]float64 {
	emb := make([][]float64, n)
	scale := 1.0 / float64(dim)

	var proj [][]float64
	if len(features) == n && n > 0 && len(features[0]) > 0 {
		fdim := len(features[0])
		proj = make([][]float64, fdim)
		for j := range proj {
			proj[j] = make([]float64, dim)
			for k := range proj[j] {
				proj[j][k] = rng.NormFloat64() * scale
			}
		}
	}

	for i := 0; i < n; i++ {
		row := make([]float64, dim)
		for k := range row {
			row[k] = rng.NormFloat64() * scale
		}
		if proj != nil {
			for j, fv := range features[i] {
				if fv == 0 {
					continue
				}
				for k := 0; k < dim; k++ {
					row[k] += fv * proj[j][k]
				}
			}
		}
		emb[i] = row
	}
	return emb
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
