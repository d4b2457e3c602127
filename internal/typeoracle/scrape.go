package typeoracle

import (
	"regexp"
	"strings"
)

var (
	newlineRE     = regexp.MustCompile(`\n|\\n`)
	declarationRE = regexp.MustCompile("(?m)\\w+: ?(.*?)```$")
	spacesRE      = regexp.MustCompile(`  +`)
)

// ScrapeType pulls a type out of hover content blocks. A block matches
// when it ends with `name: <type>` followed by a closing code fence; the
// last matching block wins. Returns nil when no block matches.
func ScrapeType(blocks []string) *string {
	var found *string
	for _, block := range blocks {
		if t, ok := scrapeBlock(block); ok {
			found = &t
		}
	}
	return found
}

func scrapeBlock(block string) (string, bool) {
	text := newlineRE.ReplaceAllString(block, " ")
	m := declarationRE.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return "", false
	}
	// a fence inside the capture means the match spanned more than one declaration
	if strings.Contains(m[1], "`") {
		return "", false
	}
	t := strings.TrimSpace(spacesRE.ReplaceAllString(m[1], " "))
	if t == "" {
		return "", false
	}
	return t, true
}
