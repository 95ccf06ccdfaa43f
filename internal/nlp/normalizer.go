package nlp

import (
	"strings"
	"unicode"
)

// Normalize 规范化文本
// 1. 合并连续空白并去除首尾空白
// 2. 将不在允许集合内的字符替换为空格
// 3. 再次合并空白
func Normalize(text string) string {
	collapsed := collapseSpaces(text)
	filtered := strings.Map(func(r rune) rune {
		if isAllowed(r) {
			return r
		}
		return ' '
	}, collapsed)
	return collapseSpaces(filtered)
}

// collapseSpaces 合并空白并去除首尾空白
func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// isSpace 只把ASCII空白视为空白，其余空白字符在过滤阶段被替换
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isAllowed(r rune) bool {
	if isHangul(r) || isASCIILetter(r) || isASCIIDigit(r) || isSpace(r) {
		return true
	}
	return strings.ContainsRune("()[]{}.,;:-", r)
}

// charClass 分词时使用的字符类别
type charClass int

const (
	classSpace charClass = iota
	classLetter
	classDigit
	classOther
)

func classify(r rune) charClass {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case unicode.IsLetter(r):
		return classLetter
	case unicode.IsDigit(r):
		return classDigit
	default:
		return classOther
	}
}

// Tokenize 按字符类别切分文本
// 在空白处以及字母、数字、其他字符之间的类别变化处切分；
// 其他字符只有与前一个字符相同时才连成一个词，例如 "..." 是一个词而 ".," 是两个
func Tokenize(text string) []string {
	var tokens []string
	runes := []rune(text)
	state := classSpace
	start := 0
	var prev rune

	for i, r := range runes {
		class := classify(r)
		if state == classSpace {
			if class != classSpace {
				start = i
			}
		} else if class != state || (class == classOther && r != prev) {
			tokens = append(tokens, string(runes[start:i]))
			start = i
		}
		state = class
		prev = r
	}

	if state != classSpace {
		tokens = append(tokens, string(runes[start:]))
	}
	return tokens
}
