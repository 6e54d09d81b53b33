package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "CNKIHunter/db"
	"CNKIHunter/internal/models"
)

var _ storage.RecordStorage = (*SQLiteDB)(nil)

func strPtr(s string) *string { return &s }

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	d, err := NewSQLiteDB(filepath.Join(t.TempDir(), "data", "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func rec(link, database string, date time.Time) *models.Record {
	return &models.Record{
		Title:      "題名 " + link,
		TitleLink:  "http://cnki.sris.com.tw/kns55/detail/detail.aspx?FileName=" + link,
		Author:     "作者",
		Source:     "來源",
		SourceLink: "http://cnki.sris.com.tw/kns55/Navi/ScdbBridge.aspx",
		Date:       date,
		Database:   database,
	}
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestUpsert_DedupByTitleLink(t *testing.T) {
	d := newTestDB(t)

	r := rec("A", "期刊", day(2020, 12, 28))
	id1, err := d.Upsert("尹至", r)
	require.NoError(t, err)

	r2 := rec("A", "期刊", day(2020, 12, 28))
	r2.Download = strPtr("http://cnki.sris.com.tw/kns55/download.aspx?f=A")
	id2, err := d.Upsert("墨子", r2)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	n, err := d.CountRecords(models.RecordCondition{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, total, err := d.ListRecords(models.RecordCondition{Keyword: "墨子"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.NotNil(t, list[0].Download)
	assert.Equal(t, "http://cnki.sris.com.tw/kns55/download.aspx?f=A", *list[0].Download)
	assert.Nil(t, list[0].HTMLLink)
	assert.True(t, list[0].Date.Equal(day(2020, 12, 28)))
}

func TestListRecords_Conditions(t *testing.T) {
	d := newTestDB(t)
	seed := []*models.Record{
		rec("A", "期刊", day(2018, 1, 1)),
		rec("B", "博士", day(2019, 6, 1)),
		rec("C", "碩士", day(2020, 3, 1)),
		rec("D", "期刊", day(2021, 9, 1)),
	}
	for _, r := range seed {
		_, err := d.Upsert("尹至", r)
		require.NoError(t, err)
	}
	from, to := day(2019, 1, 1), day(2020, 12, 31)

	tests := []struct {
		name  string
		cond  models.RecordCondition
		links []string
		total int
	}{
		{name: "全部按日期倒序", cond: models.RecordCondition{}, links: []string{"D", "C", "B", "A"}, total: 4},
		{name: "按数据库", cond: models.RecordCondition{Databases: []string{"博士", "碩士"}}, links: []string{"C", "B"}, total: 2},
		{name: "按日期区间", cond: models.RecordCondition{DateFrom: &from, DateTo: &to}, links: []string{"C", "B"}, total: 2},
		{name: "分页", cond: models.RecordCondition{Limit: 2, Offset: 1}, links: []string{"C", "B"}, total: 4},
		{name: "检索词不匹配", cond: models.RecordCondition{Keyword: "墨子"}, total: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, total, err := d.ListRecords(tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			var got []string
			for _, r := range list {
				got = append(got, r.TitleLink[len(r.TitleLink)-1:])
			}
			assert.Equal(t, tt.links, got)
		})
	}
}

func TestDeleteRecords(t *testing.T) {
	d := newTestDB(t)
	for _, r := range []*models.Record{rec("A", "期刊", day(2018, 1, 1)), rec("B", "博士", day(2019, 6, 1))} {
		_, err := d.Upsert("尹至", r)
		require.NoError(t, err)
	}

	n, err := d.DeleteRecords(models.RecordCondition{Databases: []string{"期刊"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := d.CountRecords(models.RecordCondition{})
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}
