package document

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"unicode/utf16"
)

var errEmptyCMap = errors.New("cmap has no mappings")

// codeSpace 一段合法的字符码范围，按字节逐位比较
type codeSpace struct {
	lo, hi string
}

// unicodeRange bfrange条目，目标为起始码(base)或逐码数组(dst)
type unicodeRange struct {
	lo, hi string
	base   string
	dst    []string
}

// unicodeCMap 字体ToUnicode映射，实现pdf.TextEncoding
type unicodeCMap struct {
	spaces     []codeSpace
	chars      map[string]string
	ranges     []unicodeRange
	defaultLen int
}

// cmapOperand CMap中的字符串或字符串数组操作数
type cmapOperand struct {
	str   string
	list  []string
	array bool
}

// parseUnicodeCMap 解析ToUnicode流，只关心codespacerange、bfchar和bfrange
func parseUnicodeCMap(data []byte) (*unicodeCMap, error) {
	m := &unicodeCMap{chars: make(map[string]string)}

	var (
		operands []cmapOperand
		array    []string
		inArray  bool
	)
	push := func(s string) {
		if inArray {
			array = append(array, s)
			return
		}
		operands = append(operands, cmapOperand{str: s})
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '[':
			inArray, array = true, nil
			i++
		case c == ']':
			if inArray {
				operands = append(operands, cmapOperand{list: array, array: true})
			}
			inArray = false
			i++
		case c == '<':
			if i+1 < len(data) && data[i+1] == '<' {
				i += 2
				continue
			}
			end := bytes.IndexByte(data[i+1:], '>')
			if end < 0 {
				return nil, errors.New("unterminated hex string in cmap")
			}
			push(decodeHexString(data[i+1 : i+1+end]))
			i += end + 2
		case c == '(':
			s, n := readCMapLiteral(data[i:])
			push(s)
			i += n
		case c == '/':
			i++
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelimiter(data[i]) {
				i++
			}
		case isPDFDelimiter(c):
			i++
		default:
			j := i
			for j < len(data) && !isPDFSpace(data[j]) && !isPDFDelimiter(data[j]) {
				j++
			}
			word := string(data[i:j])
			i = j
			if strings.ContainsAny(word[:1], "0123456789+-.") {
				continue
			}
			m.apply(word, operands)
			operands = operands[:0]
		}
	}

	if len(m.chars) == 0 && len(m.ranges) == 0 {
		return nil, errEmptyCMap
	}
	m.finish()
	return m, nil
}

func (m *unicodeCMap) apply(op string, operands []cmapOperand) {
	switch op {
	case "endcodespacerange":
		for k := 0; k+1 < len(operands); k += 2 {
			lo, hi := operands[k].str, operands[k+1].str
			if lo == "" || len(lo) != len(hi) {
				continue
			}
			m.spaces = append(m.spaces, codeSpace{lo: lo, hi: hi})
		}
	case "endbfchar":
		for k := 0; k+1 < len(operands); k += 2 {
			if operands[k].str == "" || operands[k+1].array {
				continue
			}
			m.chars[operands[k].str] = operands[k+1].str
		}
	case "endbfrange":
		for k := 0; k+2 < len(operands); k += 3 {
			lo, hi, dst := operands[k].str, operands[k+1].str, operands[k+2]
			if lo == "" || len(lo) != len(hi) || lo > hi {
				continue
			}
			r := unicodeRange{lo: lo, hi: hi}
			if dst.array {
				r.dst = dst.list
			} else {
				r.base = dst.str
			}
			m.ranges = append(m.ranges, r)
		}
	}
}

// finish 码空间按字节长度从短到长排列；缺少码空间时取映射中第一个源码的长度
func (m *unicodeCMap) finish() {
	sort.SliceStable(m.spaces, func(i, j int) bool {
		return len(m.spaces[i].lo) < len(m.spaces[j].lo)
	})
	for code := range m.chars {
		if m.defaultLen == 0 || len(code) < m.defaultLen {
			m.defaultLen = len(code)
		}
	}
	for _, r := range m.ranges {
		if m.defaultLen == 0 || len(r.lo) < m.defaultLen {
			m.defaultLen = len(r.lo)
		}
	}
}

// Decode 将显示字符串中的字符码转换为UTF-8文本，无映射的码被丢弃
func (m *unicodeCMap) Decode(raw string) string {
	var b strings.Builder
	for len(raw) > 0 {
		n := m.codeLength(raw)
		b.WriteString(m.lookup(raw[:n]))
		raw = raw[n:]
	}
	return b.String()
}

func (m *unicodeCMap) codeLength(raw string) int {
	for _, s := range m.spaces {
		n := len(s.lo)
		if n > len(raw) {
			continue
		}
		inside := true
		for k := 0; k < n; k++ {
			if raw[k] < s.lo[k] || raw[k] > s.hi[k] {
				inside = false
				break
			}
		}
		if inside {
			return n
		}
	}
	if m.defaultLen > 0 && m.defaultLen <= len(raw) {
		return m.defaultLen
	}
	return 1
}

func (m *unicodeCMap) lookup(code string) string {
	if dst, ok := m.chars[code]; ok {
		return utf16Text(dst)
	}
	for _, r := range m.ranges {
		// 等长字节串的字典序即大端整数序
		if len(code) != len(r.lo) || code < r.lo || code > r.hi {
			continue
		}
		off := codeValue(code) - codeValue(r.lo)
		if r.dst != nil {
			if off < uint64(len(r.dst)) {
				return utf16Text(r.dst[off])
			}
			return ""
		}
		return utf16Text(addCode(r.base, off))
	}
	return ""
}

// codeValue 按大端整数读取字符码
func codeValue(code string) uint64 {
	var v uint64
	for i := 0; i < len(code); i++ {
		v = v<<8 | uint64(code[i])
	}
	return v
}

// addCode 在保持字节长度的前提下给大端整数加上偏移
func addCode(base string, off uint64) string {
	b := []byte(base)
	for i := len(b) - 1; i >= 0 && off > 0; i-- {
		sum := uint64(b[i]) + off&0xff
		b[i] = byte(sum)
		off = off>>8 + sum>>8
	}
	return string(b)
}

// utf16Text 将UTF-16BE字节解码为UTF-8，单字节目标按Latin-1处理
func utf16Text(s string) string {
	if len(s) == 1 {
		return string(rune(s[0]))
	}
	units := make([]uint16, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		units = append(units, uint16(s[i])<<8|uint16(s[i+1]))
	}
	var b strings.Builder
	for _, r := range utf16.Decode(units) {
		if r != 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeHexString 解码<...>中的十六进制数字，奇数个数字末尾补0
func decodeHexString(s []byte) string {
	digits := make([]byte, 0, len(s))
	for _, c := range s {
		if v, ok := hexValue(c); ok {
			digits = append(digits, v)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, 0)
	}
	buf := make([]byte, 0, len(digits)/2)
	for j := 0; j < len(digits); j += 2 {
		buf = append(buf, digits[j]<<4|digits[j+1])
	}
	return string(buf)
}

// readCMapLiteral 读取(...)字面量字符串，返回内容和消耗的字节数
func readCMapLiteral(s []byte) (string, int) {
	var buf []byte
	depth := 0
	i := 0
	for ; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(':
			depth++
			if depth == 1 {
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				return string(buf), i + 1
			}
		case '\\':
			i++
			if i >= len(s) {
				return string(buf), i
			}
			c = s[i]
			switch c {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := c - '0'
				for k := 0; k < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; k++ {
					i++
					v = v<<3 | (s[i] - '0')
				}
				c = v
			}
		}
		buf = append(buf, c)
	}
	return string(buf), i
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
