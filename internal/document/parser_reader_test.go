package document

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserReaderImplementations(t *testing.T) {
	t.Run("PlainText", func(t *testing.T) {
		content := "데이터베이스 설계 문서.\n두 번째 줄."
		result, err := NewPlainTextParser().ParseReader(strings.NewReader(content), "test.txt")

		require.NoError(t, err)
		assert.Equal(t, content, result)
	})

	t.Run("PlainText form feed", func(t *testing.T) {
		result, err := NewPlainTextParser().ParseReader(strings.NewReader("가\f나"), "test.txt")
		require.NoError(t, err)
		assert.Equal(t, "가\n\n나", result)
	})

	t.Run("Markdown", func(t *testing.T) {
		content := "# 머신러닝\n\nThis is **bold** text."
		result, err := NewMarkdownParser().ParseReader(bytes.NewReader([]byte(content)), "test.md")

		require.NoError(t, err)
		assert.Contains(t, result, "머신러닝")
		assert.Contains(t, result, "This is bold text.")
	})

	t.Run("HTML fallback", func(t *testing.T) {
		content := "<html><body><div>짧은 본문</div></body></html>"
		result, err := NewHTMLParser().ParseReader(strings.NewReader(content), "short.html")

		require.NoError(t, err)
		assert.Contains(t, result, "짧은 본문")
	})
}
