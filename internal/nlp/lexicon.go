package nlp

import (
	"strings"
	"unicode/utf8"
)

// Lexicon 韩语分析使用的静态词表
// 由DefaultLexicon构造一次，之后只读，可被多个Analyzer共享
type Lexicon struct {
	Particles           []string            // 助词，按匹配顺序排列
	StopWords           map[string]struct{} // 停用词
	InvalidEndings      []string            // 复合词成分不允许的短词尾
	DerivationalEndings []string            // 生成变体时剥离的派生词尾
}

// DefaultLexicon 返回默认韩语词表
func DefaultLexicon() *Lexicon {
	stopWords := []string{
		"그", "이", "저", "것", "수", "등", "들", "및", "또한", "그리고", "하지만",
		"그러나", "따라서", "그래서", "즉", "또는", "혹은", "만약", "만일", "경우",
		"때문", "위해", "통해", "대해", "관해", "있다", "없다", "되다", "하다",
	}

	lex := &Lexicon{
		Particles: []string{
			"이", "가", "을", "를", "에", "에서", "로", "으로", "와", "과", "의", "은", "는",
			"도", "만", "까지", "부터", "에게", "께", "한테", "보다", "처럼", "같이",
		},
		StopWords:           make(map[string]struct{}, len(stopWords)),
		InvalidEndings:      []string{"의", "에", "를", "을", "가", "이", "는", "은"},
		DerivationalEndings: []string{"하다", "되다", "있다", "없다", "이다", "적", "성", "들"},
	}
	for _, w := range stopWords {
		lex.StopWords[w] = struct{}{}
	}
	return lex
}

// IsStopWord 判断是否为停用词
func (l *Lexicon) IsStopWord(word string) bool {
	_, ok := l.StopWords[word]
	return ok
}

// IsParticle 判断词语是否为助词或以助词结尾
func (l *Lexicon) IsParticle(word string) bool {
	for _, p := range l.Particles {
		if strings.HasSuffix(word, p) {
			return true
		}
	}
	return false
}

// isHangul 判断字符是否在韩文音节区间 가-힣
func isHangul(r rune) bool {
	return r >= '가' && r <= '힣'
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// ContainsHangul 判断文本中是否含有韩文字符
func ContainsHangul(s string) bool {
	for _, r := range s {
		if isHangul(r) {
			return true
		}
	}
	return false
}

// isAllHangul 非空且全部为韩文字符
func isAllHangul(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHangul(r) {
			return false
		}
	}
	return true
}

// isAllDigits 非空且全部为ASCII数字
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isASCIIDigit(r) {
			return false
		}
	}
	return true
}

// hasLetter 是否至少含有一个韩文或英文字母
func hasLetter(s string) bool {
	for _, r := range s {
		if isHangul(r) || isASCIILetter(r) {
			return true
		}
	}
	return false
}

// runeLen 所有长度均按字符(rune)计算
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
