package document

import (
	"strings"
	"sync"
)

// ChunkerConfig 分块器配置，长度均按字符(rune)计算
type ChunkerConfig struct {
	ChunkSize    int // 分块大小
	ChunkOverlap int // 相邻分块的重叠字符数
	Workers      int // 并行处理页面的协程数
}

// DefaultChunkerConfig 返回默认分块器配置
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Workers:      4,
	}
}

// TextChunk 一个带来源信息的文本块
type TextChunk struct {
	Content    string `json:"content"`
	PageNumber int    `json:"page_number"`
	SourceName string `json:"source_name"`
	ChunkIndex int    `json:"chunk_index"` // 在所属页面分块结果中的位置
}

// Chunker 按固定窗口切分文本，优先在句子边界处断开
type Chunker struct {
	config ChunkerConfig
}

// NewChunker 创建分块器，非法配置回退到默认值
func NewChunker(config ChunkerConfig) *Chunker {
	def := DefaultChunkerConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = def.ChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	return &Chunker{config: config}
}

// Config 返回当前配置
func (c *Chunker) Config() ChunkerConfig {
	return c.config
}

// Chunk 将一页文本切分为若干重叠窗口
// 不超过ChunkSize的文本原样返回
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	n := len(runes)
	size, overlap := c.config.ChunkSize, c.config.ChunkOverlap

	if n <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < n {
		end := min(start+size, n)

		// 只接受位于窗口后半段的边界
		if end < n {
			if b := lastBoundary(runes, end, start+size/2); b >= 0 {
				end = b + 1
			}
		}

		chunks = append(chunks, string(runes[start:end]))
		start = max(start+1, end-overlap)
	}

	return chunks
}

// lastBoundary 从from向前查找句子边界，只返回大于floor的位置
func lastBoundary(runes []rune, from, floor int) int {
	for i := min(from, len(runes)-1); i > floor; i-- {
		switch runes[i] {
		case '.', '?', '!', '\n':
			return i
		}
	}
	return -1
}

// ChunkPages 对所有页面分块
// 空白页面跳过，空白分块丢弃但不重新编号，结果按页面顺序排列
func (c *Chunker) ChunkPages(pages []Page, sourceName string) []TextChunk {
	results := make([][]TextChunk, len(pages))

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.config.Workers)

	for i, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, page Page) {
			defer func() {
				<-sem
				wg.Done()
			}()
			results[i] = c.chunkPage(page, sourceName)
		}(i, page)
	}
	wg.Wait()

	var chunks []TextChunk
	for _, r := range results {
		chunks = append(chunks, r...)
	}
	return chunks
}

func (c *Chunker) chunkPage(page Page, sourceName string) []TextChunk {
	var chunks []TextChunk
	for idx, content := range c.Chunk(page.Text) {
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		chunks = append(chunks, TextChunk{
			Content:    content,
			PageNumber: page.Number,
			SourceName: sourceName,
			ChunkIndex: idx,
		})
	}
	return chunks
}
