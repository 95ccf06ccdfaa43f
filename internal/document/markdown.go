package document

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// blockSelector 渲染后需要换行分隔的块级元素
const blockSelector = "p, li, h1, h2, h3, h4, h5, h6, pre, blockquote, tr, div"

// MarkdownParser Markdown文档解析器
type MarkdownParser struct{}

// NewMarkdownParser 创建新的Markdown解析器
func NewMarkdownParser() Parser {
	return &MarkdownParser{}
}

// Parse 解析Markdown文件并提取文本内容
func (p *MarkdownParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open markdown file: %w", err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader 从Reader解析Markdown内容
func (p *MarkdownParser) ParseReader(r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read markdown content: %w", err)
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)
	doc := mdParser.Parse(content)

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	htmlContent := markdown.Render(doc, renderer)

	text, err := htmlText(htmlContent)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}
	return text, nil
}

// ParsePages Markdown没有分页，整个文档作为第1页
func (p *MarkdownParser) ParsePages(filePath string) ([]Page, error) {
	text, err := p.Parse(filePath)
	if err != nil {
		return nil, err
	}
	return []Page{{Number: 1, Text: text}}, nil
}

// htmlText 用goquery提取HTML文本，块级元素之间保留换行
func htmlText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return cleanLines(doc.Text()), nil
}
