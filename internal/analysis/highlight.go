package analysis

import (
	"strings"
	"unicode"

	"github.com/rivo/tview"
)

// Block is one run of summary text. Keyword runs get colored in the UI;
// separator runs pass through untouched so concatenating all blocks
// reproduces the input exactly.
type Block struct {
	Text    string
	Keyword bool
}

// SplitBlocks cuts s into alternating word and separator runs. Whitespace
// and punctuation are separators; everything else is a word. The split is
// lossless.
func SplitBlocks(s string) []Block {
	if s == "" {
		return nil
	}
	blocks := []Block{}
	var cur strings.Builder
	curWord := false
	flush := func() {
		if cur.Len() > 0 {
			blocks = append(blocks, Block{Text: cur.String(), Keyword: curWord})
			cur.Reset()
		}
	}
	for _, r := range s {
		word := !unicode.IsSpace(r) && !unicode.IsPunct(r)
		if word != curWord {
			flush()
			curWord = word
		}
		cur.WriteRune(r)
	}
	flush()
	return blocks
}

// keywordIndex lowercases the terms for case-insensitive matching.
func keywordIndex(terms []string) map[string]struct{} {
	idx := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			idx[t] = struct{}{}
		}
	}
	return idx
}

// Highlight wraps every word of s that matches one of terms in a color tag.
// Non-matching runs are escaped so literal brackets in the summary cannot be
// misread as style tags.
func Highlight(s string, terms []string, colorTag string) string {
	idx := keywordIndex(terms)
	if len(idx) == 0 {
		return tview.Escape(s)
	}
	var out strings.Builder
	for _, b := range SplitBlocks(s) {
		if b.Keyword {
			if _, hit := idx[strings.ToLower(b.Text)]; hit {
				out.WriteString("[" + colorTag + "]")
				out.WriteString(tview.Escape(b.Text))
				out.WriteString("[-]")
				continue
			}
		}
		out.WriteString(tview.Escape(b.Text))
	}
	return out.String()
}

// KeywordTerms gathers the highlightable terms from a report: entity display
// names plus each entity name's individual words.
func KeywordTerms(r *Report) []string {
	if r == nil {
		return nil
	}
	terms := []string{}
	for _, e := range r.Entities {
		name := EntityLabel(e)
		terms = append(terms, name)
		for _, w := range strings.Fields(name) {
			terms = append(terms, w)
		}
	}
	return terms
}
