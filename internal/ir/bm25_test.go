package ir

import (
	"testing"

	"CNKIHunter/internal/models"
)

func TestNewBM25Searcher(t *testing.T) {
	tokenizer, _ := NewTokenizer()
	searcher := NewBM25Searcher(NewInvertedIndex(tokenizer), tokenizer)

	k1, b := searcher.GetParameters()
	if k1 != 1.5 || b != 0.75 {
		t.Errorf("default params = (%.2f, %.2f), want (1.5, 0.75)", k1, b)
	}

	searcher.SetParameters(1.2, 0.8)
	k1, b = searcher.GetParameters()
	if k1 != 1.2 || b != 0.8 {
		t.Errorf("params after SetParameters = (%.2f, %.2f)", k1, b)
	}
}

func TestBM25Searcher_Search(t *testing.T) {
	tokenizer, _ := NewTokenizer()
	index := NewInvertedIndex(tokenizer)
	searcher := NewBM25Searcher(index, tokenizer)

	records := []*models.Record{
		{Title: "清華簡《尹至》研究", Author: "張三", Source: "華東師範大學"},
		{Title: "墨子的人性論與政治論", Author: "謝啟陽", Source: "職大學報"},
		{Title: "先秦政治思想", Author: "王五", Source: "尹至研究會"},
	}
	for i, r := range records {
		index.AddDocument(int64(i+1), r)
	}

	results := searcher.Search("尹至", 10)
	if len(results) != 2 {
		t.Fatalf("Search(尹至) returned %d results, want 2", len(results))
	}
	// 标题命中优先于来源命中
	if results[0].DocID != 1 || results[1].DocID != 3 {
		t.Errorf("order = [%d %d], want [1 3]", results[0].DocID, results[1].DocID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %.4f <= %.4f", results[0].Score, results[1].Score)
	}

	if got := searcher.Search("政治", 1); len(got) != 1 {
		t.Errorf("topK=1 returned %d results", len(got))
	}

	if got := searcher.Search("the of", 10); len(got) != 0 {
		t.Errorf("stop-word query returned %d results", len(got))
	}

	if got := searcher.Search("量子", 10); len(got) != 0 {
		t.Errorf("unknown term returned %d results", len(got))
	}
}

func TestIRSearcher(t *testing.T) {
	tokenizer, _ := NewTokenizer()
	s := NewIRSearcher(tokenizer)

	if _, err := s.Search("尹至", 5); err == nil {
		t.Error("空索引应返回错误")
	}
	if err := s.BuildIndex(nil); err == nil {
		t.Error("空列表应返回错误")
	}

	records := []*models.Record{
		{Title: "墨子研究", Author: "甲", Source: "乙"},
		{Title: "清華簡《尹至》新釋", Author: "丙", Source: "文物"},
	}
	if err := s.BuildIndex(records); err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}

	got, err := s.Search("尹至新釋", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].Record != records[1] {
		t.Fatalf("Search() = %+v", got)
	}

	if _, err := s.Search("", 5); err == nil {
		t.Error("空查询应返回错误")
	}

	stats := s.GetIndexStats()
	if stats["total_records"] != 2 {
		t.Errorf("total_records = %v", stats["total_records"])
	}
}
