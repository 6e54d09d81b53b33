package feishu

import (
	"context"
	"errors"
	"fmt"
	"testing"

	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CNKIHunter/pkg/logger"
)

type fakeBitable struct {
	headers []string
	batches []int
	failAt  int // 第几次 BatchCreate 失败，0 表示不失败
}

func (f *fakeBitable) CreateApp(_ context.Context, name, _ string) (string, string, error) {
	return "app-" + name, "https://feishu.test/base/app-" + name, nil
}

func (f *fakeBitable) CreateTable(_ context.Context, _, _ string, headers []string) (string, error) {
	f.headers = headers
	return "tbl1", nil
}

func (f *fakeBitable) BatchCreate(_ context.Context, _, _ string, records []*larkbitable.AppTableRecord) error {
	f.batches = append(f.batches, len(records))
	if f.failAt == len(f.batches) {
		return errors.New("rate limited")
	}
	return nil
}

func newTestClient(api bitableAPI) *Client {
	return &Client{FileName: "尹至", api: api, log: logger.WithPrefix("FeiShu")}
}

func rows(n int) [][]string {
	out := [][]string{{"題名", "作者"}}
	for i := 0; i < n; i++ {
		out = append(out, []string{fmt.Sprintf("題名 %d", i), "李學勤"})
	}
	return out
}

func TestUploadRows(t *testing.T) {
	fake := &fakeBitable{}
	url, err := newTestClient(fake).UploadRows(context.Background(), rows(1201))
	require.NoError(t, err)
	assert.Equal(t, "https://feishu.test/base/app-尹至", url)
	assert.Equal(t, []string{"題名", "作者"}, fake.headers)
	assert.Equal(t, []int{500, 500, 201}, fake.batches)
}

func TestUploadRows_Errors(t *testing.T) {
	_, err := newTestClient(&fakeBitable{}).UploadRows(context.Background(), nil)
	assert.Error(t, err)

	fake := &fakeBitable{failAt: 2}
	_, err = newTestClient(fake).UploadRows(context.Background(), rows(600))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "501-600")
}

func TestToBitableRecords(t *testing.T) {
	records := ToBitableRecords([]string{"題名", "作者", "全文連結"}, [][]string{
		{"墨子的人性論與政治論", "謝啟陽", ""},
		{"短行"},
	})
	require.Len(t, records, 2)
	assert.Equal(t, map[string]interface{}{"題名": "墨子的人性論與政治論", "作者": "謝啟陽"}, records[0].Fields)
	assert.Equal(t, map[string]interface{}{"題名": "短行"}, records[1].Fields)
}
