package nlp

import "strings"

// Variations 生成关键词的变体，结果第一个元素始终是关键词本身
func (a *Analyzer) Variations(keyword string) []string {
	set := newOrderedSet()
	set.add(keyword)

	length := runeLen(keyword)
	if length >= 3 {
		for _, ending := range a.lexicon.DerivationalEndings {
			if !strings.HasSuffix(keyword, ending) || length <= runeLen(ending) {
				continue
			}
			stem := strings.TrimSuffix(keyword, ending)
			if runeLen(stem) > 1 {
				set.add(stem)
			}
		}
	}

	if length >= 4 {
		for _, part := range a.DetectCompounds(keyword) {
			set.add(part)
		}
	}

	return set.items
}

// NormalizeKeywords 返回所有关键词变体的并集，按首次出现顺序去重
func (a *Analyzer) NormalizeKeywords(keywords []string) []string {
	set := newOrderedSet()
	for _, kw := range keywords {
		for _, v := range a.Variations(kw) {
			set.add(v)
		}
	}
	return set.items
}

// orderedSet 保持插入顺序的字符串集合
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
