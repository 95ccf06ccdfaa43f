package document

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// PlainTextParser 纯文本解析器
// 换页符(\f)视为分页
type PlainTextParser struct{}

// NewPlainTextParser 创建一个新的纯文本解析器
func NewPlainTextParser() Parser {
	return &PlainTextParser{}
}

// Parse 解析纯文本文件
func (p *PlainTextParser) Parse(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open text file: %w", err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}

// ParseReader 从Reader读取纯文本
func (p *PlainTextParser) ParseReader(r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read text file %s: %w", filename, err)
	}
	return strings.ReplaceAll(string(content), "\f", "\n\n"), nil
}

// ParsePages 按换页符切分页面
func (p *PlainTextParser) ParsePages(filePath string) ([]Page, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	return splitFormFeed(string(content)), nil
}

func splitFormFeed(text string) []Page {
	parts := strings.Split(text, "\f")
	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	return pages
}
