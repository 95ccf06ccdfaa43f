package nlp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = "인공지능 기술은 빠르게 발전하고 있다. 머신러닝과 딥러닝이 핵심이다."

func TestStripParticle(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		word     string
		expected string
	}{
		{"기술은", "기술"},
		{"데이터를", "데이터"},
		{"학교에서", "학교"},
		{"머신러닝과", "머신러닝"},
		{"이", "이"},
		{"인공지능", "인공지능"},
		{"AI", "AI"},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.expected, a.StripParticle(tt.word))
		})
	}
}

func TestIsValidWord(t *testing.T) {
	a := NewAnalyzer()

	assert.True(t, a.IsValidWord("학교"))
	assert.True(t, a.IsValidWord("현실"))
	assert.False(t, a.IsValidWord("가"), "single syllable")
	assert.False(t, a.IsValidWord("그리고"), "stop word")
	assert.False(t, a.IsValidWord("사이"), "ends with a particle")
	assert.False(t, a.IsValidWord("ab"), "not hangul")
	assert.False(t, a.IsValidWord("가1"), "mixed digits")
}

func TestDetectCompounds(t *testing.T) {
	a := NewAnalyzer()

	t.Run("two part compounds", func(t *testing.T) {
		assert.Equal(t, []string{"가상", "현실"}, a.DetectCompounds("가상현실"))
		assert.Equal(t, []string{"인공", "지능"}, a.DetectCompounds("인공지능"))
		assert.Equal(t, []string{"머신", "러닝"}, a.DetectCompounds("머신러닝"))
	})

	t.Run("skips split with particle ending", func(t *testing.T) {
		// "데이"以助词"이"结尾，跳过第一个切分点
		assert.Equal(t, []string{"데이터", "베이스"}, a.DetectCompounds("데이터베이스"))
	})

	t.Run("greedy leftmost split recurses on right part", func(t *testing.T) {
		assert.Equal(t,
			[]string{"클라", "우드컴퓨팅", "우드", "컴퓨팅"},
			a.DetectCompounds("클라우드컴퓨팅"))
	})

	t.Run("too short", func(t *testing.T) {
		assert.Empty(t, a.DetectCompounds("딥러닝"))
		assert.Empty(t, a.DetectCompounds("AI"))
		assert.Empty(t, a.DetectCompounds(""))
	})

	t.Run("deterministic", func(t *testing.T) {
		first := a.DetectCompounds("가상현실")
		require.NotEmpty(t, first)
		assert.Equal(t, first, a.DetectCompounds("가상현실"))
	})
}

func TestAnalyze(t *testing.T) {
	a := NewAnalyzer()

	t.Run("particle removal", func(t *testing.T) {
		assert.Equal(t, []string{"기술", "기술은"}, a.Analyze([]string{"기술은"}))
	})

	t.Run("compound expansion", func(t *testing.T) {
		assert.Equal(t, []string{"인공", "지능", "인공지능"}, a.Analyze([]string{"인공지능"}))
	})

	t.Run("non hangul passes through", func(t *testing.T) {
		assert.Equal(t, []string{"AI", ".", "2024"}, a.Analyze([]string{"AI", ".", "2024"}))
	})

	t.Run("single syllable dropped", func(t *testing.T) {
		assert.Empty(t, a.Analyze([]string{"년"}))
	})

	t.Run("preserves order across tokens", func(t *testing.T) {
		got := a.Analyze([]string{"딥러닝이", "AI"})
		assert.Equal(t, []string{"딥러닝", "딥러닝이", "AI"}, got)
	})
}

func TestAnalyzeText(t *testing.T) {
	a := NewAnalyzer()

	t.Run("blank input", func(t *testing.T) {
		assert.Equal(t, "", a.AnalyzeText(""))
		assert.Equal(t, "", a.AnalyzeText("   \n\t"))
	})

	t.Run("sample sentence", func(t *testing.T) {
		got := a.AnalyzeText(sampleText)
		assert.Equal(t,
			"인공 지능 인공지능 기술 빠르게 발전 하고 발전하고 머신러닝 딥러닝 핵심 이다 핵심이다",
			got)
	})

	t.Run("filters digits and symbols", func(t *testing.T) {
		got := a.AnalyzeText("2024년 AI 보고서 !!! 123")
		assert.Equal(t, "AI 보고서", got)
	})

	t.Run("concurrent use", func(t *testing.T) {
		expected := a.AnalyzeText(sampleText)

		var wg sync.WaitGroup
		results := make([]string, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = a.AnalyzeText(sampleText)
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			assert.Equal(t, expected, r)
		}
	})
}

func TestDemonstrate(t *testing.T) {
	a := NewAnalyzer()
	result := a.Demonstrate()

	assert.Len(t, result, 5)
	assert.Equal(t, []string{"가상", "현실"}, result["가상현실"])
	assert.Equal(t, []string{"데이터", "베이스"}, result["데이터베이스"])
}

func TestCustomLexicon(t *testing.T) {
	lex := DefaultLexicon()
	lex.StopWords["지능"] = struct{}{}

	a := NewAnalyzer(WithLexicon(lex))
	assert.Empty(t, a.DetectCompounds("인공지능"))
	assert.Same(t, lex, a.Lexicon())
}
