package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/fyerfyer/ko-doc-search/internal/cache"
	"github.com/fyerfyer/ko-doc-search/internal/nlp"
	"github.com/sirupsen/logrus"
)

// ErrEmptyText 待分析文本为空
var ErrEmptyText = errors.New("text is empty")

const analysisCachePrefix = "analysis"

// Analysis 一段文本的分析结果
type Analysis struct {
	Text       string           `json:"text"`
	Normalized string           `json:"normalized"`
	Tokens     []string         `json:"tokens"`
	Processed  string           `json:"processed"`
	Keywords   []nlp.ScoredTerm `json:"keywords"`
	Variations []string         `json:"variations"`
}

// AnalysisService 文本分析服务
type AnalysisService struct {
	analyzer *nlp.Analyzer
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *logrus.Logger
}

// NewAnalysisService 创建文本分析服务，cache可以为nil
func NewAnalysisService(analyzer *nlp.Analyzer, c cache.Cache, ttl time.Duration, logger *logrus.Logger) *AnalysisService {
	if analyzer == nil {
		analyzer = nlp.NewAnalyzer()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AnalysisService{
		analyzer: analyzer,
		cache:    c,
		cacheTTL: ttl,
		logger:   logger,
	}
}

// Analyze 对文本做规范化、分词、形态素分析和关键词打分
func (s *AnalysisService) Analyze(ctx context.Context, text string) (*Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cache.GenerateCacheKey(analysisCachePrefix, text)
	if s.cache != nil {
		if val, found, err := s.cache.Get(key); err == nil && found {
			var cached Analysis
			if json.Unmarshal([]byte(val), &cached) == nil {
				return &cached, nil
			}
		}
	}

	normalized := nlp.Normalize(text)
	keywords := s.analyzer.RankKeywords(text)
	terms := make([]string, len(keywords))
	for i, k := range keywords {
		terms[i] = k.Term
	}

	result := &Analysis{
		Text:       text,
		Normalized: normalized,
		Tokens:     nonNil(nlp.Tokenize(normalized)),
		Processed:  s.analyzer.AnalyzeText(text),
		Keywords:   keywords,
		Variations: nonNil(s.analyzer.NormalizeKeywords(terms)),
	}
	if result.Keywords == nil {
		result.Keywords = []nlp.ScoredTerm{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(key, string(data), s.cacheTTL); err != nil {
				s.logger.WithError(err).Warn("Failed to cache analysis")
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"tokens":   len(result.Tokens),
		"keywords": len(result.Keywords),
	}).Debug("Text analyzed")
	return result, nil
}

// NormalizeKeywords 返回关键词及其变体，空白关键词被忽略
func (s *AnalysisService) NormalizeKeywords(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	return nonNil(s.analyzer.NormalizeKeywords(cleaned))
}

// Compounds 返回复合词的组成部分，无法拆分时为空
func (s *AnalysisService) Compounds(word string) ([]string, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, ErrEmptyText
	}
	return nonNil(s.analyzer.DetectCompounds(word)), nil
}

// Demonstrate 返回样例词的复合词识别结果
func (s *AnalysisService) Demonstrate() map[string][]string {
	return s.analyzer.Demonstrate()
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
