package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CNKIHunter/internal/bibliography"
)

type fakeZotero struct {
	mu      sync.Mutex
	batches [][]ItemData
	// 每批中需要失败的下标
	failAt map[int]bool
}

func (f *fakeZotero) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("Zotero-API-Version") != "3" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/users/42/items":
		var items []ItemData
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.batches = append(f.batches, items)
		f.mu.Unlock()

		resp := CreateResponse{
			Successful: map[string]json.RawMessage{},
			Failed:     map[string]FailedItem{},
		}
		for i := range items {
			key := fmt.Sprint(i)
			if f.failAt[i] {
				resp.Failed[key] = FailedItem{Code: 400, Message: "bad field"}
				continue
			}
			resp.Successful[key] = json.RawMessage(`{"key":"K` + key + `"}`)
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodGet && r.URL.Path == "/users/42/collections":
		_, _ = w.Write([]byte(`[{"key":"ABCD1234","version":3,"meta":{"numCollections":false,"numItems":7},"data":{"key":"ABCD1234","name":"清華簡","parentCollection":false}}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func entries(n int) []bibliography.Entry {
	out := make([]bibliography.Entry, n)
	for i := range out {
		out[i] = bibliography.Entry{
			ID:     fmt.Sprintf("id%d", i),
			Kind:   bibliography.Article,
			Author: "李學勤; 王輝",
			Title:  fmt.Sprintf("題名 %d", i),
			Venue:  "文物",
			Date:   "2021-01-15",
		}
	}
	return out
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("42", "secret", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithBatchInterval(0))
}

func TestAddEntries_Batches(t *testing.T) {
	fake := &fakeZotero{}
	c := newTestClient(t, fake)

	res, err := c.AddEntries(context.Background(), entries(120), "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, 120, res.Added)
	assert.Empty(t, res.Failed)

	require.Len(t, fake.batches, 3)
	assert.Len(t, fake.batches[0], 50)
	assert.Len(t, fake.batches[1], 50)
	assert.Len(t, fake.batches[2], 20)
	assert.Equal(t, "題名 50", fake.batches[1][0].Title)
	assert.Equal(t, []string{"ABCD1234"}, fake.batches[0][0].Collections)
}

func TestAddEntries_PartialFailure(t *testing.T) {
	fake := &fakeZotero{failAt: map[int]bool{1: true}}
	c := newTestClient(t, fake)

	res, err := c.AddEntries(context.Background(), entries(53), "")
	require.NoError(t, err)
	assert.Equal(t, 51, res.Added)
	assert.Equal(t, map[int]string{1: "bad field", 51: "bad field"}, res.Failed)
}

func TestAddEntries_InvalidCollectionKey(t *testing.T) {
	fake := &fakeZotero{}
	c := newTestClient(t, fake)

	_, err := c.AddEntries(context.Background(), entries(1), "不是 key")
	require.NoError(t, err)
	assert.Nil(t, fake.batches[0][0].Collections)
}

func TestAddEntries_APIError(t *testing.T) {
	c := NewClient("42", "wrong")
	srv := httptest.NewServer(&fakeZotero{})
	defer srv.Close()
	c.baseURL = srv.URL

	_, err := c.AddEntries(context.Background(), entries(1), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestGetCollections(t *testing.T) {
	c := newTestClient(t, &fakeZotero{})

	cols, err := c.GetCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "清華簡", cols[0].Data.Name)
	assert.Equal(t, 7, cols[0].Meta.NumItems.Int())
	assert.Equal(t, 0, cols[0].Meta.NumCollections.Int())
	assert.Empty(t, cols[0].Data.ParentCollection.String())
}

func TestToItem(t *testing.T) {
	url := "http://cnki.sris.com.tw/kns55/download.aspx?filename=X"
	thesis := ToItem(bibliography.Entry{
		ID: "abc", Kind: bibliography.MastersThesis, Author: "王五",
		Title: "先秦政治思想研究", Venue: "華東師範大學", Date: "2019-05-01", URL: &url,
	}, "")
	assert.Equal(t, "thesis", thesis.ItemType)
	require.NotNil(t, thesis.ThesisType)
	assert.Equal(t, "碩士論文", *thesis.ThesisType)
	assert.Equal(t, "華東師範大學", *thesis.University)
	assert.Nil(t, thesis.PublicationTitle)
	assert.Equal(t, url, *thesis.URL)
	assert.Equal(t, "cnki:abc", *thesis.Extra)
	assert.Equal(t, []Creator{{CreatorType: "author", Name: "王五"}}, thesis.Creators)

	article := ToItem(entries(1)[0], "")
	assert.Equal(t, "journalArticle", article.ItemType)
	assert.Equal(t, "文物", *article.PublicationTitle)
	assert.Nil(t, article.URL)
	assert.Len(t, article.Creators, 2)
}
