package textproc

import (
	"errors"
	"math"
	"sort"
)

// Vectorizer 是 TF-IDF 向量化器。
//
// 语义与 sklearn TfidfVectorizer 对齐：
//   - 词表在 Fit 时一次性确定，按全语料词频取前 MaxFeatures 个词
//   - IDF 平滑：idf = ln((1+n)/(1+df)) + 1
//   - 行向量 L2 归一化，余弦相似度退化为点积
//
// 增量语义：Fit 之后 Transform 复用冻结词表，Fit 时未见过的新词被
// 静默丢弃，直到下一次全量 Fit。这是索引增量更新的约定行为。
type Vectorizer struct {
	MaxFeatures int

	// 导出以便 gob 持久化；Terms 的顺序即向量维度顺序。
	Terms []string
	IDF   []float64

	index map[string]int
}

var (
	// ErrNotFitted 表示在 Fit 之前调用了 Transform。
	ErrNotFitted = errors.New("textproc: vectorizer not fitted")

	// ErrEmptyCorpus 表示 Fit 收到了空语料。
	ErrEmptyCorpus = errors.New("textproc: empty corpus")
)

func NewVectorizer(maxFeatures int) *Vectorizer {
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// Fitted 返回词表是否已确定。
func (v *Vectorizer) Fitted() bool {
	return len(v.Terms) > 0
}

// VocabularySize 返回词表大小（向量维度）。
func (v *Vectorizer) VocabularySize() int {
	return len(v.Terms)
}

// Fit 从全量语料拟合词表与 IDF，并返回每篇文档的 TF-IDF 行向量。
// 再次调用会整体替换旧词表。
func (v *Vectorizer) Fit(docs []string) ([][]float64, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	tokenized := make([][]string, len(docs))
	totalCount := make(map[string]int)
	docFreq := make(map[string]int)
	for i, doc := range docs {
		toks := Tokenize(doc)
		tokenized[i] = toks
		seen := make(map[string]bool, len(toks))
		for _, t := range toks {
			totalCount[t]++
			seen[t] = true
		}
		for t := range seen {
			docFreq[t]++
		}
	}
	if len(totalCount) == 0 {
		return nil, ErrEmptyCorpus
	}

	// 词表：按全语料词频降序取前 MaxFeatures，词频相同按字典序，保证确定性。
	terms := make([]string, 0, len(totalCount))
	for t := range totalCount {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if totalCount[terms[i]] != totalCount[terms[j]] {
			return totalCount[terms[i]] > totalCount[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms) // 维度顺序固定为字典序

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	index := make(map[string]int, len(terms))
	for i, t := range terms {
		index[t] = i
		idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}

	v.Terms = terms
	v.IDF = idf
	v.index = index

	rows := make([][]float64, len(docs))
	for i, toks := range tokenized {
		rows[i] = v.encode(toks)
	}
	return rows, nil
}

// Transform 用冻结词表编码单篇文档。未拟合时返回 ErrNotFitted；
// 文档里的词全部不在词表中时返回全零向量（不是错误）。
func (v *Vectorizer) Transform(doc string) ([]float64, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	return v.encode(Tokenize(doc)), nil
}

func (v *Vectorizer) encode(tokens []string) []float64 {
	if v.index == nil {
		// gob 解码后惰性重建索引
		v.index = make(map[string]int, len(v.Terms))
		for i, t := range v.Terms {
			v.index[t] = i
		}
	}
	row := make([]float64, len(v.Terms))
	for _, tok := range tokens {
		if i, ok := v.index[tok]; ok {
			row[i] += v.IDF[i]
		}
	}
	normalize(row)
	return row
}

func normalize(row []float64) {
	var sum float64
	for _, x := range row {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range row {
		row[i] /= norm
	}
}

// Dot 计算两个向量的点积；长度不一致时返回 0。
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Cosine 计算余弦相似度。行向量已 L2 归一化时与 Dot 等价，但这里
// 不依赖该前提。
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
