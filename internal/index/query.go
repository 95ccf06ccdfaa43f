package index

import (
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// 索引字段名
const (
	fieldContent          = "content"
	fieldProcessedContent = "processedContent"
	fieldFileName         = "fileName"
	fieldDocumentID       = "documentID"
	fieldPageNumber       = "pageNumber"
	fieldChunkIndex       = "chunkIndex"
)

// DefaultLimit 默认返回结果数
const DefaultLimit = 10

// Query 检索请求
type Query struct {
	Raw       string   // 用户输入的原始查询
	Processed string   // 形态素分析后的查询
	Keywords  []string // 查询关键词及其变体
	Limit     int      // 最大结果数
	FileName  string   // 仅检索该文件，为空表示全部
}

// Empty 查询中没有任何可检索的内容
func (q Query) Empty() bool {
	if strings.TrimSpace(q.Raw) != "" || strings.TrimSpace(q.Processed) != "" {
		return false
	}
	for _, kw := range q.Keywords {
		if utf8.RuneCountInString(kw) >= 2 {
			return false
		}
	}
	return true
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// BuildQuery 构造bleve查询
// 每个子句同时作用于content和processedContent两个字段
func BuildQuery(q Query, contentBoost, processedBoost float64) (query.Query, error) {
	if q.Empty() {
		return nil, ErrInvalidQuery
	}

	var clauses []query.Query
	addMatch := func(text string) {
		for _, f := range []struct {
			field string
			boost float64
		}{{fieldContent, contentBoost}, {fieldProcessedContent, processedBoost}} {
			m := bleve.NewMatchQuery(text)
			m.SetField(f.field)
			m.SetBoost(f.boost)
			clauses = append(clauses, m)
		}
	}
	addPrefix := func(prefix string) {
		for _, f := range []struct {
			field string
			boost float64
		}{{fieldContent, contentBoost}, {fieldProcessedContent, processedBoost}} {
			p := bleve.NewPrefixQuery(prefix)
			p.SetField(f.field)
			p.SetBoost(f.boost)
			clauses = append(clauses, p)
		}
	}

	if raw := strings.TrimSpace(q.Raw); raw != "" {
		addMatch(raw)
	}
	if processed := strings.TrimSpace(q.Processed); processed != "" {
		addMatch(processed)
	}
	for _, kw := range q.Keywords {
		if utf8.RuneCountInString(kw) < 2 {
			continue
		}
		addMatch(kw)
		// 前缀查询不经过分析器，需要与索引中的小写词项一致
		addPrefix(strings.ToLower(kw))
	}

	var root query.Query = bleve.NewDisjunctionQuery(clauses...)
	if q.FileName != "" {
		file := bleve.NewTermQuery(q.FileName)
		file.SetField(fieldFileName)
		root = bleve.NewConjunctionQuery(root, file)
	}
	return root, nil
}
