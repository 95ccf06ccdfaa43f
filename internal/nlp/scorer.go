package nlp

import (
	"slices"
	"strings"
)

// ScoredTerm 带分数的关键词
type ScoredTerm struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Score 计算词序列中每个不同词的相关性分数
// 只统计长度大于1的词，返回结果按首次出现顺序排列
func (a *Analyzer) Score(tokens []string, originalText string) []ScoredTerm {
	freq := make(map[string]int)
	var order []string
	for _, token := range tokens {
		if runeLen(token) <= 1 {
			continue
		}
		if _, ok := freq[token]; !ok {
			order = append(order, token)
		}
		freq[token]++
	}

	third := runeLen(originalText) / 3
	terms := make([]ScoredTerm, 0, len(order))
	for _, term := range order {
		terms = append(terms, ScoredTerm{
			Term:  term,
			Score: termScore(term, freq[term], runeIndex(originalText, term), third),
		})
	}
	return terms
}

// termScore 频率乘以长度、语种、位置系数，纯数字和单字最后降权
func termScore(term string, freq, position, third int) float64 {
	score := float64(freq)
	length := runeLen(term)

	if length >= 3 {
		score *= 1.4
	}
	if length >= 4 {
		score *= 1.3
	}
	if length >= 5 {
		score *= 1.2
	}

	if ContainsHangul(term) {
		score *= 1.3
	}

	// 未出现时position为-1，同样满足条件
	if position < third {
		score *= 1.2
	}

	if isAllDigits(term) || length == 1 {
		score *= 0.1
	}

	return score
}

// RankKeywords 提取关键词并返回分数
// 按分数降序稳定排序，同分保持首次出现顺序
func (a *Analyzer) RankKeywords(text string) []ScoredTerm {
	tokens := strings.Fields(a.AnalyzeText(text))
	terms := a.Score(tokens, text)

	slices.SortStableFunc(terms, func(x, y ScoredTerm) int {
		switch {
		case x.Score > y.Score:
			return -1
		case x.Score < y.Score:
			return 1
		default:
			return 0
		}
	})

	if len(terms) > a.maxKeywords {
		terms = terms[:a.maxKeywords]
	}
	return terms
}

// ExtractKeywords 提取排名靠前的关键词
func (a *Analyzer) ExtractKeywords(text string) []string {
	terms := a.RankKeywords(text)
	keywords := make([]string, len(terms))
	for i, t := range terms {
		keywords[i] = t.Term
	}
	return keywords
}

// runeIndex 返回子串首次出现的字符偏移，未找到返回-1
func runeIndex(text, sub string) int {
	i := strings.Index(text, sub)
	if i < 0 {
		return -1
	}
	return runeLen(text[:i])
}
