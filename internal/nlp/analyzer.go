package nlp

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// defaultMaxKeywords 关键词提取的默认上限
const defaultMaxKeywords = 25

// Analyzer 韩语形态分析器
// 负责助词剥离、复合词识别、关键词打分和变体生成
// 所有方法都不修改内部状态，可并发使用
type Analyzer struct {
	lexicon     *Lexicon       // 静态词表
	maxKeywords int            // 关键词数量上限
	logger      *logrus.Logger // 日志记录器
}

// AnalyzerOption 分析器配置选项
type AnalyzerOption func(*Analyzer)

// NewAnalyzer 创建分析器
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		lexicon:     DefaultLexicon(),
		maxKeywords: defaultMaxKeywords,
		logger:      logrus.New(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithLexicon 设置词表
func WithLexicon(lex *Lexicon) AnalyzerOption {
	return func(a *Analyzer) {
		if lex != nil {
			a.lexicon = lex
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxKeywords 设置关键词数量上限
func WithMaxKeywords(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxKeywords = n
		}
	}
}

// Lexicon 返回分析器使用的词表
func (a *Analyzer) Lexicon() *Lexicon {
	return a.lexicon
}

// AnalyzeText 分析文本，返回以空格连接的分析结果
func (a *Analyzer) AnalyzeText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	a.logger.WithField("preview", preview(text, 50)).Debug("Analyzing text")

	tokens := Tokenize(Normalize(text))
	return strings.Join(a.Filter(a.Analyze(tokens)), " ")
}

// Analyze 对词序列做形态分析
// 不含韩文的词原样保留，韩文词展开为词干、复合词成分和原词
func (a *Analyzer) Analyze(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !ContainsHangul(token) {
			result = append(result, token)
			continue
		}
		result = append(result, a.expandWord(token)...)
	}
	return result
}

// expandWord 展开单个韩文词，结果在本词范围内去重
func (a *Analyzer) expandWord(word string) []string {
	var morphemes []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		morphemes = append(morphemes, s)
	}

	base := a.StripParticle(word)
	if base != word && runeLen(base) > 1 {
		add(base)
	}

	length := runeLen(word)
	if length >= 4 {
		for _, part := range a.DetectCompounds(word) {
			if runeLen(part) > 1 {
				add(part)
			}
		}
	}

	if length > 1 {
		add(word)
	}

	return morphemes
}

// StripParticle 剥离词尾助词
// 按词表顺序取第一个匹配的助词，剥离后必须非空
func (a *Analyzer) StripParticle(word string) string {
	length := runeLen(word)
	for _, p := range a.lexicon.Particles {
		if strings.HasSuffix(word, p) && length > runeLen(p) {
			return strings.TrimSuffix(word, p)
		}
	}
	return word
}

// DetectCompounds 识别复合词
// 从左到右寻找第一个两侧都是有效词的切分点，只对右半部分递归
func (a *Analyzer) DetectCompounds(word string) []string {
	runes := []rune(word)
	n := len(runes)

	var parts []string
	for i := 2; i <= n-2; i++ {
		left, right := string(runes[:i]), string(runes[i:])
		if !a.IsValidWord(left) || !a.IsValidWord(right) {
			continue
		}

		parts = append(parts, left, right)
		if n-i >= 4 {
			parts = append(parts, a.DetectCompounds(right)...)
		}
		break
	}

	return parts
}

// IsValidWord 判断复合词成分是否有效
func (a *Analyzer) IsValidWord(word string) bool {
	length := runeLen(word)
	if length < 2 {
		return false
	}
	if a.lexicon.IsStopWord(word) || a.lexicon.IsParticle(word) {
		return false
	}

	for _, ending := range a.lexicon.InvalidEndings {
		if strings.HasSuffix(word, ending) && length <= runeLen(ending)+1 {
			return false
		}
	}

	return isAllHangul(word)
}

// Filter 过滤分析结果
// 去掉单字、停用词、助词结尾的词、纯数字以及不含字母的词
func (a *Analyzer) Filter(tokens []string) []string {
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if runeLen(token) <= 1 ||
			a.lexicon.IsStopWord(token) ||
			a.lexicon.IsParticle(token) ||
			isAllDigits(token) ||
			!hasLetter(token) {
			continue
		}
		filtered = append(filtered, token)
	}
	return filtered
}

// demoWords 复合词识别演示使用的样例
var demoWords = []string{"가상현실", "인공지능", "머신러닝", "데이터베이스", "클라우드컴퓨팅"}

// Demonstrate 记录样例词的复合词识别结果
func (a *Analyzer) Demonstrate() map[string][]string {
	result := make(map[string][]string, len(demoWords))
	for _, word := range demoWords {
		parts := a.DetectCompounds(word)
		if len(parts) == 0 {
			continue
		}
		result[word] = parts
		a.logger.WithFields(logrus.Fields{
			"word":  word,
			"parts": parts,
		}).Info("Compound detected")
	}
	return result
}

// preview 截取文本开头用于日志
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
