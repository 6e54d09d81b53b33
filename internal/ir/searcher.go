package ir

import (
	"fmt"
	"sync"

	"CNKIHunter/internal/models"
)

// SearchResult 单个文档的得分
type SearchResult struct {
	DocID int64
	Score float64
}

// IRSearcher 对本地文献库中的记录做关键词排序
type IRSearcher struct {
	index     *InvertedIndex
	tokenizer *Tokenizer
	bm25      *BM25Searcher
	records   []*models.Record // 文档 ID 为下标加一
	mutex     sync.RWMutex
}

// NewIRSearcher 创建 IR 搜索引擎
func NewIRSearcher(tokenizer *Tokenizer) *IRSearcher {
	index := NewInvertedIndex(tokenizer)
	return &IRSearcher{
		index:     index,
		tokenizer: tokenizer,
		bm25:      NewBM25Searcher(index, tokenizer),
	}
}

// BuildIndex 从记录列表构建索引
func (s *IRSearcher) BuildIndex(records []*models.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("记录列表为空")
	}
	for _, r := range records {
		if err := s.AddDocument(r); err != nil {
			return err
		}
	}
	return nil
}

// AddDocument 添加单条记录到索引
func (s *IRSearcher) AddDocument(r *models.Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if r == nil {
		return fmt.Errorf("记录不能为空")
	}

	s.records = append(s.records, r)
	s.index.AddDocument(int64(len(s.records)), r)
	return nil
}

// Search 返回得分最高的 topK 条记录，topK<=0 时默认 10
func (s *IRSearcher) Search(query string, topK int) ([]*models.ScoredRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if query == "" {
		return nil, fmt.Errorf("查询字符串不能为空")
	}
	if len(s.records) == 0 {
		return nil, fmt.Errorf("索引为空，请先构建索引")
	}
	if topK <= 0 {
		topK = 10
	}

	hits := s.bm25.Search(query, topK)
	out := make([]*models.ScoredRecord, 0, len(hits))
	for _, h := range hits {
		out = append(out, &models.ScoredRecord{Record: s.records[h.DocID-1], Score: h.Score})
	}
	return out, nil
}

// GetIndexStats 获取索引统计信息
func (s *IRSearcher) GetIndexStats() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	k1, b := s.bm25.GetParameters()
	return map[string]interface{}{
		"total_records":      len(s.records),
		"vocabulary_size":    s.index.GetVocabularySize(),
		"average_doc_length": s.index.GetAverageDocumentLength(),
		"bm25_k1":            k1,
		"bm25_b":             b,
	}
}

// SetBM25Parameters 设置 BM25 参数
func (s *IRSearcher) SetBM25Parameters(k1, b float64) {
	s.bm25.SetParameters(k1, b)
}
