package ir

import (
	"math"
	"sort"
)

// 标题中的命中比作者、来源中的命中更重要
const titleWeightFactor = 2.0

// BM25Searcher BM25 搜索器
type BM25Searcher struct {
	index     *InvertedIndex
	tokenizer *Tokenizer
	k1        float64 // 词频饱和度参数，默认 1.5
	b         float64 // 长度归一化参数，默认 0.75
}

// NewBM25Searcher 创建 BM25 搜索器
func NewBM25Searcher(index *InvertedIndex, tokenizer *Tokenizer) *BM25Searcher {
	return NewBM25SearcherWithParams(index, tokenizer, 1.5, 0.75)
}

// NewBM25SearcherWithParams 创建带自定义参数的 BM25 搜索器
func NewBM25SearcherWithParams(index *InvertedIndex, tokenizer *Tokenizer, k1, b float64) *BM25Searcher {
	return &BM25Searcher{
		index:     index,
		tokenizer: tokenizer,
		k1:        k1,
		b:         b,
	}
}

// Search 执行 BM25 搜索，分数相同时按文档 ID 升序
func (s *BM25Searcher) Search(query string, topK int) []*SearchResult {
	queryTerms := s.tokenizer.Tokenize(query)
	if len(queryTerms) == 0 {
		return make([]*SearchResult, 0)
	}

	// 获取包含查询词的所有文档
	candidateDocs := make(map[int64]bool)
	for _, term := range queryTerms {
		for _, posting := range s.index.GetPostingList(term) {
			candidateDocs[posting.DocID] = true
		}
	}

	results := make([]*SearchResult, 0, len(candidateDocs))
	for docID := range candidateDocs {
		if score := s.computeDocumentScore(queryTerms, docID); score > 0 {
			results = append(results, &SearchResult{DocID: docID, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	return results
}

// computeIDF 计算 IDF
func (s *BM25Searcher) computeIDF(term string) float64 {
	df := s.index.GetDocumentFrequency(term)
	totalDocs := s.index.GetTotalDocs()

	if df == 0 || totalDocs == 0 {
		return 0
	}

	// 对于小数据集，使用更平滑的 log(N/df)
	if df == totalDocs {
		// 如果词在所有文档中都出现，给予最小的IDF
		return 0.1
	}
	return math.Log(float64(totalDocs) / float64(df))
}

// computeDocumentScore 计算查询与文档的总 BM25 分数
func (s *BM25Searcher) computeDocumentScore(queryTerms []string, docID int64) float64 {
	docLength := s.index.GetDocumentLength(docID)
	avgDocLength := s.index.GetAverageDocumentLength()
	if docLength == 0 || avgDocLength == 0 {
		return 0
	}

	var totalScore float64
	for _, term := range queryTerms {
		posting, ok := s.index.GetPosting(term, docID)
		if !ok || posting.TermFreq == 0 {
			continue
		}

		idf := s.computeIDF(term)
		if idf == 0 {
			continue
		}

		// BM25(qi,d) = IDF(qi) × (f(qi,d) × (k1 + 1)) / (f(qi,d) + k1 × (1 - b + b × |d|/avgdl))
		tf := float64(posting.TermFreq)
		numerator := tf * (s.k1 + 1)
		denominator := tf + s.k1*(1-s.b+s.b*float64(docLength)/avgDocLength)
		score := idf * (numerator / denominator)

		if posting.TitleFreq > 0 {
			titleProportion := float64(posting.TitleFreq) / tf
			score *= 1 + (titleWeightFactor-1)*titleProportion
		}

		totalScore += score
	}

	return totalScore
}

// SetParameters 设置 BM25 参数
func (s *BM25Searcher) SetParameters(k1, b float64) {
	s.k1 = k1
	s.b = b
}

// GetParameters 获取当前 BM25 参数
func (s *BM25Searcher) GetParameters() (k1, b float64) {
	return s.k1, s.b
}
