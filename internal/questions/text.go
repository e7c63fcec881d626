package questions

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minKeywordLength drops articles and short connectives from sample answers.
const minKeywordLength = 3

// Normalize lowercases s, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// skip
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}

// Tokenize splits normalized text into words.
func Tokenize(s string) []string {
	return strings.Fields(Normalize(s))
}

// Keywords returns the distinct significant words of s in first-seen order.
// Short words are ignored unless the text has nothing else.
func Keywords(s string) []string {
	tokens := Tokenize(s)
	seen := make(map[string]bool, len(tokens))
	var long, all []string
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		all = append(all, t)
		if utf8.RuneCountInString(t) >= minKeywordLength {
			long = append(long, t)
		}
	}
	if len(long) == 0 {
		return all
	}
	return long
}

// KeywordOverlap returns the share of sample keywords present in answer.
func KeywordOverlap(sample, answer string) float64 {
	keywords := Keywords(sample)
	if len(keywords) == 0 {
		return 0
	}
	given := make(map[string]bool)
	for _, t := range Tokenize(answer) {
		given[t] = true
	}
	matched := 0
	for _, k := range keywords {
		if given[k] {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}
