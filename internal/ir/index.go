package ir

import (
	"strings"
	"sync"

	"CNKIHunter/internal/models"
)

// Posting 倒排索引中的 posting 条目
type Posting struct {
	DocID     int64 // 文档ID
	TermFreq  int   // 总词频（标题+作者来源）
	TitleFreq int   // 标题中的词频
	MetaFreq  int   // 作者与来源中的词频
}

// PostingList 某个词的倒排列表
type PostingList []Posting

// InvertedIndex 倒排索引结构
type InvertedIndex struct {
	index        map[string]PostingList // 倒排索引：term -> []Posting
	docLengths   map[int64]int          // 文档总长度
	tokenizer    *Tokenizer
	mutex        sync.RWMutex // 读写锁，保证并发安全
	totalDocs    int          // 文档总数
	totalLength  int
	avgDocLength float64 // 平均文档长度
}

// NewInvertedIndex 创建新的倒排索引
func NewInvertedIndex(tokenizer *Tokenizer) *InvertedIndex {
	return &InvertedIndex{
		index:      make(map[string]PostingList),
		docLengths: make(map[int64]int),
		tokenizer:  tokenizer,
	}
}

// AddDocument 添加单条记录到索引
func (ii *InvertedIndex) AddDocument(docID int64, r *models.Record) {
	ii.mutex.Lock()
	defer ii.mutex.Unlock()

	titleTermFreqs := ii.tokenizer.TokenizeWithCount(r.Title)
	metaTermFreqs := ii.tokenizer.TokenizeWithCount(strings.Join([]string{r.Author, r.Source}, " "))

	// 合并所有词项
	allTerms := make(map[string]bool)
	length := 0
	for term, n := range titleTermFreqs {
		allTerms[term] = true
		length += n
	}
	for term, n := range metaTermFreqs {
		allTerms[term] = true
		length += n
	}

	for term := range allTerms {
		titleFreq := titleTermFreqs[term]
		metaFreq := metaTermFreqs[term]
		ii.index[term] = append(ii.index[term], Posting{
			DocID:     docID,
			TermFreq:  titleFreq + metaFreq,
			TitleFreq: titleFreq,
			MetaFreq:  metaFreq,
		})
	}

	ii.docLengths[docID] = length

	// 更新统计信息
	ii.totalDocs++
	ii.totalLength += length
	ii.avgDocLength = float64(ii.totalLength) / float64(ii.totalDocs)
}

// GetPostingList 获取词的倒排列表
func (ii *InvertedIndex) GetPostingList(term string) PostingList {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()

	return ii.index[term]
}

// GetPosting 获取词在指定文档中的 posting
func (ii *InvertedIndex) GetPosting(term string, docID int64) (Posting, bool) {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()

	for _, posting := range ii.index[term] {
		if posting.DocID == docID {
			return posting, true
		}
	}
	return Posting{}, false
}

// GetDocumentFrequency 获取文档频率（DF）- 包含该词的文档数
func (ii *InvertedIndex) GetDocumentFrequency(term string) int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()

	return len(ii.index[term])
}

// GetTermFrequency 获取词频（TF）- 词在指定文档中的频率
func (ii *InvertedIndex) GetTermFrequency(term string, docID int64) int {
	p, _ := ii.GetPosting(term, docID)
	return p.TermFreq
}

// GetAverageDocumentLength 获取平均文档长度
func (ii *InvertedIndex) GetAverageDocumentLength() float64 {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()

	return ii.avgDocLength
}

// GetDocumentLength 获取指定文档的长度
func (ii *InvertedIndex) GetDocumentLength(docID int64) int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()

	return ii.docLengths[docID]
}

// GetTotalDocs 获取文档总数
func (ii *InvertedIndex) GetTotalDocs() int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()

	return ii.totalDocs
}

// GetVocabularySize 获取词汇表大小
func (ii *InvertedIndex) GetVocabularySize() int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()

	return len(ii.index)
}
