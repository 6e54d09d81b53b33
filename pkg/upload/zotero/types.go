package zotero

import (
	"encoding/json"
)

// IntOrBool 处理可能是 int 或 false 的字段（如 numItems）
// Zotero API 在值为 0 时会返回 false 而不是 0
type IntOrBool int

func (i *IntOrBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*i = 1
		} else {
			*i = 0
		}
		return nil
	}

	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		*i = IntOrBool(num)
		return nil
	}

	*i = 0
	return nil
}

func (i IntOrBool) Int() int {
	return int(i)
}

// StringOrBool 处理可能是 string 或 false 的字段（如 parentCollection）
type StringOrBool string

func (s *StringOrBool) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = StringOrBool(str)
		return nil
	}
	*s = ""
	return nil
}

func (s StringOrBool) String() string {
	return string(s)
}

/*
POST /users/{userID}/items

	[
	  {
	    "itemType": "thesis",
	    "title": "先秦政治思想研究",
	    "creators": [{"creatorType": "author", "name": "王五"}],
	    "thesisType": "碩士論文",
	    "university": "華東師範大學",
	    "date": "2019-05-01",
	    "url": "http://cnki.sris.com.tw/kns55/download.aspx?filename=...",
	    "libraryCatalog": "CNKI",
	    "tags": [{"tag": "cnki", "type": 1}]
	  }
	]

响应中 successful/unchanged/failed 均以请求数组下标为 key
*/

// ItemData 只包含期刊论文与学位论文会用到的字段
type ItemData struct {
	ItemType string    `json:"itemType"` // journalArticle 或 thesis
	Title    string    `json:"title"`
	Creators []Creator `json:"creators,omitempty"`
	Date     *string   `json:"date,omitempty"`
	URL      *string   `json:"url,omitempty"`

	// journalArticle
	PublicationTitle *string `json:"publicationTitle,omitempty"`

	// thesis
	ThesisType *string `json:"thesisType,omitempty"`
	University *string `json:"university,omitempty"`

	LibraryCatalog *string  `json:"libraryCatalog,omitempty"`
	Extra          *string  `json:"extra,omitempty"`
	Tags           []Tag    `json:"tags,omitempty"`
	Collections    []string `json:"collections,omitempty"`
}

// Creator 中文姓名不拆分，使用单字段 name
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

type Tag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type,omitempty"` // 0=用户标签, 1=自动标签
}

type CreateResponse struct {
	Successful map[string]json.RawMessage `json:"successful"`
	Unchanged  map[string]json.RawMessage `json:"unchanged"`
	Failed     map[string]FailedItem      `json:"failed"`
}

type FailedItem struct {
	Key     string `json:"key"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Collection struct {
	Key     string         `json:"key"`
	Version int            `json:"version"`
	Meta    CollectionMeta `json:"meta"`
	Data    CollectionData `json:"data"`
}

type CollectionData struct {
	Key              string       `json:"key"`
	Name             string       `json:"name"`
	ParentCollection StringOrBool `json:"parentCollection"` // false 或父集合 key
}

type CollectionMeta struct {
	NumCollections IntOrBool `json:"numCollections"`
	NumItems       IntOrBool `json:"numItems"`
}
