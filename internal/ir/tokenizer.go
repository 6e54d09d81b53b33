package ir

import (
	"strings"
	"unicode"
)

type Tokenizer struct {
	stopWords map[string]bool // 维护一个停用词的集合
}

func NewTokenizer() (*Tokenizer, error) {
	return &Tokenizer{
		stopWords: defaultStopWords(),
	}, nil
}

// Tokenize 拉丁字母与数字按词切分（小写，去停用词，丢弃单字符）；
// 连续的汉字切成相邻二元组，单独一个汉字保留为一个词
func (t *Tokenizer) Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	text = strings.ToLower(text)
	tokens := make([]string, 0, len(text)/2)

	var word, han []rune
	flushWord := func() {
		if len(word) > 1 && !t.stopWords[string(word)] {
			tokens = append(tokens, string(word))
		}
		word = word[:0]
	}
	flushHan := func() {
		switch {
		case len(han) == 1:
			tokens = append(tokens, string(han))
		case len(han) > 1:
			for i := 0; i+1 < len(han); i++ {
				tokens = append(tokens, string(han[i:i+2]))
			}
		}
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return tokens
}

func (t *Tokenizer) TokenizeWithCount(text string) map[string]int {
	result := make(map[string]int)

	if text == "" {
		return result
	}

	tokens := t.Tokenize(text)
	for _, token := range tokens {
		result[token]++
	}

	return result
}

func defaultStopWords() map[string]bool {
	stopWords := make(map[string]bool)
	stopMaps := []string{
		"a", "an", "the",
		"and", "or", "but", "nor", "for", "so", "yet",
		"in", "on", "at", "to", "of", "with", "by", "from", "up", "about", "into", "through", "during",
		"i", "you", "he", "she", "it", "we", "they", "this", "that", "these", "those",
		"is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "having", "do", "does", "did", "doing", "done",
		"will", "would", "should", "could", "can", "may", "might", "must",
		"as", "if", "than", "then", "when", "where", "why", "how",
		"all", "each", "every", "both", "few", "more", "most", "other", "some", "such", "no", "not", "only", "own", "same", "too", "very",
	}

	for _, word := range stopMaps {
		stopWords[word] = true
	}
	return stopWords
}
