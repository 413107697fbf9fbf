package checker

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"jobproof/internal/models"
)

//go:embed dict.txt
var dictData []byte

// minTokenLen is the shortest token the fallback checker flags. One- and
// two-letter tokens are almost always abbreviations in trade notes.
const minTokenLen = 3

// reWord matches alphabetic tokens, optionally with one internal
// apostrophe ("didn't"). Tokens with digits (part numbers, cable sizes)
// are never flagged.
var reWord = regexp.MustCompile(`[a-zA-Z]+(?:'[a-zA-Z]+)?`)

// FallbackChecker is the offline spelling checker used when the grammar
// service is unavailable. It only knows spelling, not grammar, and its
// matches carry Medium confidence so they always land in manual review.
type FallbackChecker struct {
	words map[string]struct{}
}

// NewFallbackChecker builds the checker from the embedded lexicon plus
// any extra known words (the rules whitelist, config additions).
func NewFallbackChecker(extra ...string) *FallbackChecker {
	c := &FallbackChecker{words: make(map[string]struct{}, 1024)}

	sc := bufio.NewScanner(bytes.NewReader(dictData))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c.words[strings.ToLower(line)] = struct{}{}
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			c.words[w] = struct{}{}
		}
	}
	return c
}

// Name implements TextChecker.
func (c *FallbackChecker) Name() string { return "fallback-spelling" }

// Known reports whether a word is in the lexicon.
func (c *FallbackChecker) Known(word string) bool {
	_, ok := c.words[strings.ToLower(word)]
	return ok
}

// Check implements TextChecker. It flags unknown lowercase words that
// have a close dictionary neighbour; unknown words with no neighbour are
// assumed to be jargon and left alone, matching how the whitelist treats
// domain terms it has never seen.
func (c *FallbackChecker) Check(_ context.Context, text string) ([]models.Match, error) {
	var out []models.Match
	for _, loc := range reWord.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		if len(token) < minTokenLen || skipToken(token) {
			continue
		}
		if c.Known(token) {
			continue
		}

		suggestion := c.suggest(strings.ToLower(token))
		if suggestion == "" {
			continue
		}

		out = append(out, models.Match{
			Start:       loc[0],
			End:         loc[1],
			RuleID:      "spelling/" + strings.ToLower(token),
			Source:      models.SourceFallbackSpelling,
			Replacement: matchLeadingCase(token, suggestion),
			Confidence:  models.ConfidenceMedium,
			Message:     "Possible misspelling of \"" + suggestion + "\"",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// skipToken filters tokens that look like acronyms or product names:
// all-caps (GPO, RCD) or mixed case past the first letter (PowerPoint).
func skipToken(token string) bool {
	upper := 0
	for i, r := range token {
		if unicode.IsUpper(r) {
			if i > 0 {
				return true
			}
			upper++
		}
	}
	return upper == len(token)
}

// suggest returns the best dictionary word within one edit of the token,
// or "" when there is none. Candidates sharing the token's first letter
// are preferred, then shorter, then lexicographic, so the result is
// deterministic.
func (c *FallbackChecker) suggest(token string) string {
	candidates := c.editsInDict(token)
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		af := a[0] == token[0]
		bf := b[0] == token[0]
		if af != bf {
			return af
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return candidates[0]
}

// editsInDict generates all strings within edit distance 1 of token and
// returns those present in the lexicon.
func (c *FallbackChecker) editsInDict(token string) []string {
	const letters = "abcdefghijklmnopqrstuvwxyz'"
	seen := map[string]struct{}{}
	var out []string
	add := func(w string) {
		if w == token || w == "" {
			return
		}
		if _, dup := seen[w]; dup {
			return
		}
		seen[w] = struct{}{}
		if c.Known(w) {
			out = append(out, w)
		}
	}

	for i := 0; i <= len(token); i++ {
		left, right := token[:i], token[i:]
		if right != "" {
			add(left + right[1:]) // delete
			if len(right) > 1 {
				add(left + string(right[1]) + string(right[0]) + right[2:]) // transpose
			}
			for _, ch := range letters {
				add(left + string(ch) + right[1:]) // replace
			}
		}
		for _, ch := range letters {
			add(left + string(ch) + right) // insert
		}
	}
	return out
}

// matchLeadingCase capitalizes the suggestion when the original token is
// capitalized.
func matchLeadingCase(original, suggestion string) string {
	if original == "" || suggestion == "" {
		return suggestion
	}
	or := []rune(original)
	sr := []rune(suggestion)
	if unicode.IsUpper(or[0]) && unicode.IsLower(sr[0]) {
		sr[0] = unicode.ToUpper(sr[0])
		return string(sr)
	}
	return suggestion
}
