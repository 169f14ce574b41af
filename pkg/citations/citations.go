package citations

import "strings"

// Citation references a source document backing part of an answer. Either
// field may be empty; a citation with neither is meaningless and is dropped
// by Dedupe before display.
type Citation struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// IsZero reports whether the citation carries no information at all.
func (c Citation) IsZero() bool {
	return strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.URL) == ""
}

// DisplayTitle returns the title, falling back to the URL's basename when the
// backend sent a bare link.
func (c Citation) DisplayTitle() string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return Basename(c.URL)
}

// Basename strips a local-file scheme prefix and returns the substring after
// the last path separator, forward or backward slash. It is used both for
// display names and for dedup keys.
func Basename(raw string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "file://")
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func dedupeKey(c Citation) string {
	key := Basename(c.URL)
	if key == "" {
		key = c.Title
	}
	return strings.ToLower(strings.TrimSpace(key))
}

// Dedupe drops citations whose key (basename of the URL, falling back to the
// title, lowercased and trimmed) was already seen, keeping the first
// occurrence in its original position. Entries with an empty key are dropped
// entirely. Citation order therefore reflects first mention.
func Dedupe(cs []Citation) []Citation {
	out, _ := DedupeWithMap(cs)
	return out
}

// DedupeWithMap is Dedupe plus the mapping from original 1-based indices to
// 1-based positions in the deduped list. The map feeds RenumberMarkers so
// that inline markers authored against the raw list stay consistent.
func DedupeWithMap(cs []Citation) ([]Citation, map[int]int) {
	out := make([]Citation, 0, len(cs))
	seen := map[string]int{}
	oldToNew := map[int]int{}
	for i, c := range cs {
		if c.IsZero() {
			continue
		}
		key := dedupeKey(c)
		if key == "" {
			continue
		}
		if pos, ok := seen[key]; ok {
			oldToNew[i+1] = pos
			continue
		}
		out = append(out, c)
		seen[key] = len(out)
		oldToNew[i+1] = len(out)
	}
	return out, oldToNew
}
