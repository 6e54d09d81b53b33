// Package zotero 通过 Zotero Web API v3 把文献条目写入用户文献库。
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"CNKIHunter/internal/bibliography"
	"CNKIHunter/pkg/logger"
)

const (
	defaultBaseURL = "https://api.zotero.org"
	// 单次请求最多 50 条
	batchSize = 50
)

type Client struct {
	userID     string
	apiKey     string
	httpClient *http.Client
	baseURL    string
	// 批次之间的间隔，避免 429
	interval time.Duration
	log      *logger.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

func WithBatchInterval(d time.Duration) Option { return func(c *Client) { c.interval = d } }

func NewClient(userID, apiKey string, opts ...Option) *Client {
	c := &Client{
		userID:  userID,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		interval: time.Second,
		log:      logger.WithPrefix("Zotero"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadResult 批量写入的汇总
type UploadResult struct {
	Added  int
	Failed map[int]string // 条目下标 -> 失败原因
}

// AddEntries 分批写入条目，单条失败记入结果，请求级失败直接返回
func (c *Client) AddEntries(ctx context.Context, entries []bibliography.Entry, collectionKey string) (UploadResult, error) {
	res := UploadResult{Failed: map[int]string{}}
	if collectionKey != "" && !isValidCollectionKey(collectionKey) {
		c.log.Warn("'%s' 不是有效的 Zotero collection key，将添加到默认位置", collectionKey)
		collectionKey = ""
	}

	for i := 0; i < len(entries); i += batchSize {
		end := min(i+batchSize, len(entries))
		if i > 0 && c.interval > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(c.interval):
			}
		}

		items := make([]ItemData, 0, end-i)
		for _, e := range entries[i:end] {
			items = append(items, ToItem(e, collectionKey))
		}
		resp, err := c.createItems(ctx, items)
		if err != nil {
			return res, fmt.Errorf("failed to add batch %d-%d: %w", i, end, err)
		}

		res.Added += len(resp.Successful) + len(resp.Unchanged)
		for key, failed := range resp.Failed {
			var idx int
			if _, err := fmt.Sscanf(key, "%d", &idx); err != nil || idx < 0 || i+idx >= end {
				continue
			}
			res.Failed[i+idx] = failed.Message
			c.log.Warn("条目 %s 写入失败: %s", entries[i+idx].Title, failed.Message)
		}
		c.log.Info("已写入第 %d-%d 条", i+1, end)
	}
	return res, nil
}

func (c *Client) createItems(ctx context.Context, items []ItemData) (*CreateResponse, error) {
	jsonData, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal items: %w", err)
	}

	url := fmt.Sprintf("%s/users/%s/items", c.baseURL, c.userID)
	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result CreateResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCollections 获取用户的 collection 列表
func (c *Client) GetCollections(ctx context.Context) ([]Collection, error) {
	url := fmt.Sprintf("%s/users/%s/collections", c.baseURL, c.userID)
	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var collections []Collection
	if err := c.do(req, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Zotero-API-Version", "3")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ToItem 期刊/辑刊写成 journalArticle，学位论文写成 thesis
func ToItem(e bibliography.Entry, collectionKey string) ItemData {
	item := ItemData{
		Title:          e.Title,
		Creators:       creators(e.Authors()),
		LibraryCatalog: ptr("CNKI"),
		Tags:           []Tag{{Tag: "cnki", Type: 1}},
		URL:            e.URL,
	}
	if e.Date != "" {
		item.Date = ptr(e.Date)
	}
	switch e.Kind {
	case bibliography.PhDThesis:
		item.ItemType = "thesis"
		item.ThesisType = ptr("博士論文")
		item.University = ptr(e.Venue)
	case bibliography.MastersThesis:
		item.ItemType = "thesis"
		item.ThesisType = ptr("碩士論文")
		item.University = ptr(e.Venue)
	default:
		item.ItemType = "journalArticle"
		item.PublicationTitle = ptr(e.Venue)
	}
	if e.ID != "" {
		item.Extra = ptr("cnki:" + e.ID)
	}
	if collectionKey != "" {
		item.Collections = []string{collectionKey}
	}
	return item
}

func creators(authors []string) []Creator {
	out := make([]Creator, 0, len(authors))
	for _, name := range authors {
		out = append(out, Creator{CreatorType: "author", Name: name})
	}
	return out
}

func isValidCollectionKey(key string) bool {
	if len(key) < 6 || len(key) > 10 {
		return false
	}
	for _, r := range key {
		if !((r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}

func ptr(s string) *string { return &s }
