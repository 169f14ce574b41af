package citations

import (
	"regexp"
	"strconv"
)

var (
	squareMarker = regexp.MustCompile(`\[(\d+)\]`)
	roundMarker  = regexp.MustCompile(`\((\d+)\)`)
)

// Segment is one piece of a linkified answer: literal text, or a citation
// link whose visible label is the original bracketed marker. A link whose
// citation has no resolvable URL keeps an empty Href; hosts render it as
// plain text.
type Segment struct {
	Text     string
	Href     string
	Citation *Citation
}

// IsLink reports whether the segment points at a citation.
func (s Segment) IsLink() bool { return s.Citation != nil }

// Linkify splits text on inline [n] markers and matches each marker's
// 1-based number against positions in the deduped citation list. Markers
// without a matching citation stay literal. Callers must dedupe before
// linkifying: marker numbers refer to the list as deduped, not as received.
func Linkify(text string, deduped []Citation, apiBase, token string) []Segment {
	var out []Segment
	appendLiteral := func(lit string) {
		if lit == "" {
			return
		}
		if n := len(out); n > 0 && !out[n-1].IsLink() {
			out[n-1].Text += lit
			return
		}
		out = append(out, Segment{Text: lit})
	}

	last := 0
	for _, m := range squareMarker.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n < 1 || n > len(deduped) {
			continue
		}
		appendLiteral(text[last:start])
		last = end
		href, _ := Resolve(deduped[n-1], apiBase, token)
		out = append(out, Segment{Text: text[start:end], Href: href, Citation: &deduped[n-1]})
	}
	appendLiteral(text[last:])
	return out
}

// RenumberMarkers rewrites [n] and (n) markers using the old-to-new index map
// produced by DedupeWithMap. Numbers not present in the map are left as-is.
func RenumberMarkers(text string, oldToNew map[int]int) string {
	if len(oldToNew) == 0 {
		return text
	}
	rewrite := func(open, close string) func(string) string {
		return func(m string) string {
			n, err := strconv.Atoi(m[1 : len(m)-1])
			if err != nil {
				return m
			}
			repl, ok := oldToNew[n]
			if !ok {
				return m
			}
			return open + strconv.Itoa(repl) + close
		}
	}
	text = squareMarker.ReplaceAllStringFunc(text, rewrite("[", "]"))
	text = roundMarker.ReplaceAllStringFunc(text, rewrite("(", ")"))
	return text
}
