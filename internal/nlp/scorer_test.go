package nlp

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreOf(terms []ScoredTerm, term string) (float64, bool) {
	for _, t := range terms {
		if t.Term == term {
			return t.Score, true
		}
	}
	return 0, false
}

func TestScore(t *testing.T) {
	a := NewAnalyzer()

	t.Run("length script and position bonuses", func(t *testing.T) {
		text := "인공지능 기술은 빠르게 발전하고 있다. 머신러닝과 딥러닝이 핵심이다."
		terms := a.Score(strings.Fields(a.AnalyzeText(text)), text)

		score, ok := scoreOf(terms, "인공지능")
		require.True(t, ok)
		assert.InDelta(t, 1.4*1.3*1.3*1.2, score, 1e-9)

		// 出现在前三分之一之后，没有位置加分
		score, ok = scoreOf(terms, "머신러닝")
		require.True(t, ok)
		assert.InDelta(t, 1.4*1.3*1.3, score, 1e-9)

		score, ok = scoreOf(terms, "기술")
		require.True(t, ok)
		assert.InDelta(t, 1.3*1.2, score, 1e-9)
	})

	t.Run("single characters are not scored", func(t *testing.T) {
		terms := a.Score([]string{"a", "가", "ab"}, "ab")
		require.Len(t, terms, 1)
		assert.Equal(t, "ab", terms[0].Term)
	})

	t.Run("first encounter order", func(t *testing.T) {
		terms := a.Score([]string{"bb", "aa", "bb", "cc"}, "")
		require.Len(t, terms, 3)
		assert.Equal(t, "bb", terms[0].Term)
		assert.Equal(t, "aa", terms[1].Term)
		assert.Equal(t, "cc", terms[2].Term)
	})

	t.Run("absent term still gets position bonus", func(t *testing.T) {
		terms := a.Score([]string{"xyz"}, "completely different text")
		require.Len(t, terms, 1)
		assert.InDelta(t, 1.4*1.2, terms[0].Score, 1e-9)
	})

	t.Run("frequency monotonic", func(t *testing.T) {
		text := "서론 본문 결론"
		one := a.Score([]string{"결론"}, text)
		two := a.Score([]string{"결론", "결론"}, text)
		assert.Greater(t, two[0].Score, one[0].Score)
	})

	t.Run("digits score below letters", func(t *testing.T) {
		terms := a.Score([]string{"2024", "2024", "abcd", "abcd"}, "")
		digits, _ := scoreOf(terms, "2024")
		letters, _ := scoreOf(terms, "abcd")
		assert.Less(t, digits, letters)
		assert.InDelta(t, letters*0.1, digits, 1e-9)
	})
}

func TestRankKeywords(t *testing.T) {
	a := NewAnalyzer()

	t.Run("sample ranking", func(t *testing.T) {
		keywords := a.ExtractKeywords(sampleText)
		require.Len(t, keywords, 13)
		assert.Equal(t, "인공지능", keywords[0])
		// 同分时保持首次出现的顺序
		assert.Equal(t, []string{"발전하고", "머신러닝", "핵심이다"}, keywords[1:4])
		assert.Contains(t, keywords, "딥러닝")
		assert.Contains(t, keywords, "기술")
	})

	t.Run("hangul compounds outrank digits", func(t *testing.T) {
		terms := a.RankKeywords("인공지능 2024 인공지능 2024 2024")
		require.NotEmpty(t, terms)
		assert.Equal(t, "인공지능", terms[0].Term)
		for _, term := range terms {
			assert.NotEqual(t, "2024", term.Term)
		}
	})

	t.Run("capped and sorted", func(t *testing.T) {
		var words []string
		for i := 0; i < 40; i++ {
			word := fmt.Sprintf("term%c%c", 'a'+i/26, 'a'+i%26)
			// 不同的词频产生不同的排名
			for j := 0; j <= i%4; j++ {
				words = append(words, word)
			}
		}

		terms := a.RankKeywords(strings.Join(words, " "))
		require.Len(t, terms, 25)
		for i := 1; i < len(terms); i++ {
			assert.GreaterOrEqual(t, terms[i-1].Score, terms[i].Score)
		}
	})

	t.Run("custom limit", func(t *testing.T) {
		limited := NewAnalyzer(WithMaxKeywords(3))
		assert.Len(t, limited.ExtractKeywords(sampleText), 3)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Empty(t, a.ExtractKeywords(""))
	})
}
