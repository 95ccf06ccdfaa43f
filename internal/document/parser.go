package document

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType 不支持的文档类型
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrEmptyDocument 文档中没有可提取的文本
	ErrEmptyDocument = errors.New("no text content found in document")
)

// Parser 文档解析器接口
// 负责将不同格式的文档解析为纯文本
type Parser interface {
	// Parse 解析文档，返回全部文本内容
	Parse(filePath string) (string, error)

	// ParseReader 从Reader解析文档，返回文本内容
	// filename用于确定文档类型
	ParseReader(r io.Reader, filename string) (string, error)

	// ParsePages 按页解析文档，页码从1开始
	// 没有分页概念的格式返回单页
	ParsePages(filePath string) ([]Page, error)
}

// Page 一页文档的原始文本
type Page struct {
	Number int    // 页码，从1开始
	Text   string // 页面文本，可能为空
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// HTML 网页类型
	HTML ContentType = "html"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filePath string) (Parser, error) {
	switch DetectContentType(filePath) {
	case PDF:
		return NewPDFParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	case HTML:
		return NewHTMLParser(), nil
	default:
		return nil, ErrUnsupportedType
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	case ".html", ".htm":
		return HTML
	default:
		return Unknown
	}
}

// IsSupported 判断文件扩展名是否受支持
func IsSupported(filePath string) bool {
	return DetectContentType(filePath) != Unknown
}

// joinPages 将分页文本拼接为全文
func joinPages(pages []Page) string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n\n")
}

// cleanLines 合并行内空白，连续空行最多保留一个
func cleanLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
