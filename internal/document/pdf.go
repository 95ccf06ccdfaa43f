package document

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFParser PDF文档解析器
type PDFParser struct{}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	return &PDFParser{}
}

// Parse 解析PDF文件并提取其文本内容
func (p *PDFParser) Parse(filePath string) (string, error) {
	pages, err := p.ParsePages(filePath)
	if err != nil {
		return "", err
	}
	return joinPages(pages), nil
}

// ParseReader 将Reader内容写入临时文件后解析
func (p *PDFParser) ParseReader(r io.Reader, filename string) (string, error) {
	tmpFile, err := os.CreateTemp("", "kosearch-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to buffer pdf %s: %w", filename, err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to buffer pdf %s: %w", filename, err)
	}

	return p.Parse(tmpFile.Name())
}

// ParsePages 逐页提取PDF文本
// 页数以pdfcpu的统计为准，无法解释的页面以空文本返回，保证页码连续
func (p *PDFParser) ParsePages(filePath string) ([]Page, error) {
	pageCount, err := api.PageCountFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf page count: %w", err)
	}

	f, r, err := openPDF(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	if n := r.NumPage(); n > pageCount {
		pageCount = n
	}

	pages := make([]Page, 0, pageCount)
	for num := 1; num <= pageCount; num++ {
		text, err := pageText(r, num)
		if err != nil {
			text = ""
		}
		pages = append(pages, Page{Number: num, Text: text})
	}

	if strings.TrimSpace(joinPages(pages)) == "" {
		return nil, ErrEmptyDocument
	}
	return pages, nil
}

// openPDF 打开PDF，解析器在损坏的文件上会panic
func openPDF(filePath string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.Open(filePath)
}

// pageText 解释页面内容流，按字体的ToUnicode映射解码显示字符串
// 每个文本对象和换行操作符产生一个换行
func pageText(r *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to interpret page %d: %v", num, rec)
		}
	}()

	page := r.Page(num)
	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Null {
		return "", nil
	}

	fonts := make(map[string]pdf.TextEncoding)
	for _, name := range page.Fonts() {
		fonts[name] = fontEncoding(page.Font(name))
	}

	var (
		b   strings.Builder
		enc pdf.TextEncoding = latin1Encoding{}
	)
	newline := func() {
		s := b.String()
		if len(s) > 0 && s[len(s)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	show := func(v pdf.Value) {
		if v.Kind() == pdf.String {
			b.WriteString(enc.Decode(v.RawString()))
		}
	}

	pdf.Interpret(contents, func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "BT", "ET", "T*":
			newline()
		case "Td", "TD":
			// 同一基线上的移动视为词间距
			if len(args) == 2 && args[1].Float64() == 0 {
				b.WriteByte(' ')
			} else {
				newline()
			}
		case "Tf":
			if len(args) == 2 {
				if e, ok := fonts[args[0].Name()]; ok {
					enc = e
				} else {
					enc = latin1Encoding{}
				}
			}
		case "Tj":
			if len(args) == 1 {
				show(args[0])
			}
		case "'":
			if len(args) == 1 {
				newline()
				show(args[0])
			}
		case "\"":
			if len(args) == 3 {
				newline()
				show(args[2])
			}
		case "TJ":
			if len(args) != 1 || args[0].Kind() != pdf.Array {
				return
			}
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				item := arr.Index(i)
				if item.Kind() == pdf.String {
					show(item)
				} else if item.Float64() <= -tjSpaceThreshold {
					b.WriteByte(' ')
				}
			}
		}
	})

	return cleanLines(b.String()), nil
}

// tjSpaceThreshold TJ数组中超过该值(千分之一字号)的字距调整视为空格
const tjSpaceThreshold = 200

// fontEncoding 优先使用字体的ToUnicode映射，否则退回字体自身的编码
func fontEncoding(font pdf.Font) pdf.TextEncoding {
	if tu := font.V.Key("ToUnicode"); tu.Kind() == pdf.Stream {
		rc := tu.Reader()
		data, err := io.ReadAll(rc)
		rc.Close()
		if err == nil {
			if m, err := parseUnicodeCMap(data); err == nil {
				return m
			}
		}
	}
	return font.Encoder()
}

// latin1Encoding 未选择字体时按单字节解码
type latin1Encoding struct{}

func (latin1Encoding) Decode(raw string) string {
	runes := make([]rune, len(raw))
	for i := 0; i < len(raw); i++ {
		runes[i] = rune(raw[i])
	}
	return string(runes)
}
