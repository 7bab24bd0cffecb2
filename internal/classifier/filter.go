package classifier

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// DefaultFillerWords are stripped from transcripts before classification.
var DefaultFillerWords = []string{
	"um", "uh", "uhh", "umm",
	"er", "ah", "hmm", "mm",
	"you know", "basically", "literally",
}

var (
	spaceRun  = regexp.MustCompile(`\s+`)
	punctOnly = regexp.MustCompile(`^[.,!?;:\s]+$`)
)

// Filter removes filler words and noise from transcript text.
type Filter struct {
	mu      sync.RWMutex
	words   map[string]struct{}
	pattern *regexp.Regexp
}

// NewFilter returns a filter over words, or DefaultFillerWords when words is nil.
func NewFilter(words []string) *Filter {
	if words == nil {
		words = DefaultFillerWords
	}
	f := &Filter{}
	f.SetWords(words)
	return f
}

// SetWords replaces the filler list.
func (f *Filter) SetWords(words []string) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = struct{}{}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.words = set
	f.pattern = compileFillers(set)
}

// Words returns the filler list, sorted.
func (f *Filter) Words() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.words))
	for w := range f.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Clean strips fillers and collapses whitespace. ok is false when nothing
// meaningful is left.
func (f *Filter) Clean(text string) (cleaned string, ok bool) {
	f.mu.RLock()
	pattern := f.pattern
	f.mu.RUnlock()

	cleaned = text
	if pattern != nil {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(spaceRun.ReplaceAllString(cleaned, " "))
	cleaned = strings.TrimLeft(cleaned, ",;: ")
	if punctOnly.MatchString(cleaned) {
		cleaned = ""
	}
	return cleaned, cleaned != ""
}

// compileFillers matches any filler as a whole word, longest first so
// phrases win over their prefixes.
func compileFillers(words map[string]struct{}) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	alts := make([]string, 0, len(words))
	for w := range words {
		alts = append(alts, w)
	}
	sort.Slice(alts, func(i, j int) bool {
		if len(alts[i]) != len(alts[j]) {
			return len(alts[i]) > len(alts[j])
		}
		return alts[i] < alts[j]
	})
	for i, w := range alts {
		alts[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b[,]?`)
}
