// Package bibliography 按来源数据库把检索记录映射为文献条目（期刊论文、博士论文、硕士论文）。
package bibliography

import (
	"strings"

	"github.com/google/uuid"

	"CNKIHunter/internal/models"
)

// Kind 条目类型，取值封闭
type Kind int

const (
	Article Kind = iota + 1
	PhDThesis
	MastersThesis
)

// String 返回 BibTeX 条目类型名
func (k Kind) String() string {
	switch k {
	case Article:
		return "article"
	case PhDThesis:
		return "phdthesis"
	case MastersThesis:
		return "mastersthesis"
	default:
		return "unknown"
	}
}

// IsThesis 学位论文的来源字段是授予单位，链接取下载地址
func (k Kind) IsThesis() bool {
	return k == PhDThesis || k == MastersThesis
}

// VenueField 来源字段在 BibTeX 中的名字
func (k Kind) VenueField() string {
	if k.IsThesis() {
		return "institution"
	}
	return "journaltitle"
}

// KindOf 来源数据库到条目类型的映射，未收录的数据库返回 false
func KindOf(database string) (Kind, bool) {
	switch database {
	case models.DatabaseJournal, models.DatabaseCollection:
		return Article, true
	case models.DatabaseDoctoral:
		return PhDThesis, true
	case models.DatabaseMasters:
		return MastersThesis, true
	default:
		return 0, false
	}
}

// Entry 一条文献条目。URL 缺失时为 nil
type Entry struct {
	ID     string
	Kind   Kind
	Author string
	Title  string
	Venue  string // 期刊名或授予单位
	Date   string // ISO 日期
	URL    *string
}

// Authors 站点用分号分隔多位作者，全角分号同样视为分隔符
func (e Entry) Authors() []string {
	var names []string
	for _, part := range strings.FieldsFunc(e.Author, func(r rune) bool { return r == ';' || r == '；' }) {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FromRecord 生成条目；database 不在映射表中时返回 false
func FromRecord(r *models.Record, ids IDGenerator) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	kind, ok := KindOf(r.Database)
	if !ok {
		return Entry{}, false
	}
	if ids == nil {
		ids = ContentIDs
	}

	url := r.HTMLLink
	if kind.IsThesis() {
		url = r.Download
	}
	return Entry{
		ID:     ids.ID(r),
		Kind:   kind,
		Author: r.Author,
		Title:  r.Title,
		Venue:  r.Source,
		Date:   r.DateString(),
		URL:    url,
	}, true
}

// FromRecords 批量转换，跳过无法映射的记录
func FromRecords(records []*models.Record, ids IDGenerator) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		if e, ok := FromRecord(r, ids); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// IDGenerator 为条目生成标识
type IDGenerator interface {
	ID(r *models.Record) string
}

type IDFunc func(r *models.Record) string

func (f IDFunc) ID(r *models.Record) string { return f(r) }

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("http://cnki.sris.com.tw/kns55"))

// ContentIDs 由题名、作者、日期派生的 UUIDv5，同一记录多次导出得到相同标识
var ContentIDs IDGenerator = IDFunc(func(r *models.Record) string {
	key := strings.Join([]string{r.Title, r.Author, r.DateString()}, "\x00")
	return hexID(uuid.NewSHA1(namespace, []byte(key)))
})

// RandomIDs 基于时间的 UUIDv1，每次调用都不同
var RandomIDs IDGenerator = IDFunc(func(*models.Record) string {
	id, err := uuid.NewUUID()
	if err != nil {
		id = uuid.New()
	}
	return hexID(id)
})

func hexID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
