package document

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// HTMLParser 网页解析器
// 先用readability提取正文，失败时退回到整页文本
type HTMLParser struct{}

// NewHTMLParser 创建HTML解析器
func NewHTMLParser() Parser {
	return &HTMLParser{}
}

// Parse 解析HTML文件
func (p *HTMLParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open html file: %w", err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader 从Reader解析HTML
func (p *HTMLParser) ParseReader(r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read html content: %w", err)
	}

	pageURL := &url.URL{Scheme: "file", Path: filename}
	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err == nil {
		if text, err := htmlText([]byte(article.Content)); err == nil && text != "" {
			return text, nil
		}
	}

	text, err := htmlText(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse html %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// ParsePages HTML没有分页，整个文档作为第1页
func (p *HTMLParser) ParsePages(filePath string) ([]Page, error) {
	text, err := p.Parse(filePath)
	if err != nil {
		return nil, err
	}
	return []Page{{Number: 1, Text: text}}, nil
}
