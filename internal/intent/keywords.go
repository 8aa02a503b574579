package intent

import (
	"regexp"

	"github.com/cloudflare/ahocorasick"

	"poupazap/internal/core"
)

var fillerWords = []string{"em", "no", "na", "para", "com", "de"}

// keywordSet answers "does the text contain any of these phrases" in one
// pass and strips them as whole words afterwards.
type keywordSet struct {
	strip   []*regexp.Regexp
	matcher *ahocorasick.Matcher
}

func newKeywordSet(words []string, filler ...string) *keywordSet {
	all := append(append([]string(nil), words...), filler...)
	strip := make([]*regexp.Regexp, 0, len(all))
	for _, w := range all {
		strip = append(strip, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return &keywordSet{
		strip:   strip,
		matcher: ahocorasick.NewStringMatcher(words),
	}
}

// In reports whether normalized text contains any keyword as a substring.
func (k *keywordSet) In(text string) bool {
	return len(k.matcher.MatchThreadSafe([]byte(text))) > 0
}

// Strip removes every keyword and filler word from text.
func (k *keywordSet) Strip(text string) string {
	for _, re := range k.strip {
		text = re.ReplaceAllString(text, " ")
	}
	return text
}

// cleanRemainder turns what is left of a sentence into a description.
func cleanRemainder(s string) string {
	return core.TrimPunctuation(core.CollapseSpaces(s))
}
