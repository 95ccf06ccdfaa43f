package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"only spaces", " \t\n ", ""},
		{"collapse whitespace", "  인공지능\t\t기술\n\n발전  ", "인공지능 기술 발전"},
		{"strip symbols", "인공지능 기술!! AI@2024", "인공지능 기술 AI 2024"},
		{"keep allowed punctuation", "(가나) [x] {y}. a,b;c:d-e", "(가나) [x] {y}. a,b;c:d-e"},
		{"drop non hangul cjk", "漢字 한글 かな", "한글"},
		{"non ascii space", "가나\u00a0다라", "가나 다라"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"abc!",
		"  인공지능 기술은 빠르게 발전하고 있다.  머신러닝과 딥러닝이 핵심이다!!",
		"@@@###",
		"데이터베이스　설계 (v2.0) — 개요",
		"line1\r\nline2\vline3\fend",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input: %q", in)
	}
}

func TestTokenize(t *testing.T) {
	t.Run("character classes", func(t *testing.T) {
		tokens := Tokenize("AI기술, 2024년...")
		assert.Equal(t, []string{"AI기술", ",", "2024", "년", "..."}, tokens)
	})

	t.Run("different punctuation splits", func(t *testing.T) {
		assert.Equal(t, []string{"끝", ".", ","}, Tokenize("끝.,"))
	})

	t.Run("whitespace only", func(t *testing.T) {
		assert.Empty(t, Tokenize("   "))
	})

	t.Run("sentence", func(t *testing.T) {
		tokens := Tokenize("발전하고 있다. 머신러닝과")
		assert.Equal(t, []string{"발전하고", "있다", ".", "머신러닝과"}, tokens)
	})
}
