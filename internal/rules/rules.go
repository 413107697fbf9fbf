// Package rules holds the static correction tables: the domain-term
// whitelist, override rules guarding against bad checker suggestions, and
// the shorthand misspelling map. Tables are loaded once at startup and are
// read-only afterwards, so a single Table can be shared across goroutines.
package rules

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"jobproof/internal/models"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// contextWindow is the number of bytes of surrounding text, each side,
// given to override context patterns.
const contextWindow = 20

// prefixMinLen is the minimum whitelist entry length considered for
// prefix matching. Short abbreviations ("db", "led") match exactly only,
// so "dbx" is still flagged.
const prefixMinLen = 4

// Override guards against a checker's own incorrect suggestion for one
// flagged token. Reject discards listed replacements; ReplaceWith
// substitutes a known-correct replacement. A rule with Reject and no
// ReplaceWith cancels the match when its replacement is rejected.
type Override struct {
	Token       string   `yaml:"token"`
	Context     string   `yaml:"context,omitempty"`
	Reject      []string `yaml:"reject,omitempty"`
	ReplaceWith string   `yaml:"replace_with,omitempty"`

	contextRe *regexp.Regexp
}

// shorthandEntry is one compiled misspelling -> correction mapping.
type shorthandEntry struct {
	key        string
	correction string
	re         *regexp.Regexp
}

// tableFile is the YAML shape of a rules file.
type tableFile struct {
	Whitelist []string          `yaml:"whitelist"`
	Protected []string          `yaml:"protected"`
	Shorthand map[string]string `yaml:"shorthand"`
	Overrides []Override        `yaml:"overrides"`
}

// Table is the loaded, immutable rule set.
type Table struct {
	whitelist map[string]struct{}
	prefixes  []string
	protected map[string]struct{}
	shorthand []shorthandEntry
	overrides map[string][]Override
}

// reJunkReplacement matches replacement candidates that are not real
// words (leading consonant clusters the checker sometimes invents).
var reJunkReplacement = regexp.MustCompile(`^[bcdfghjklmnpqrstvwxz]{3,}`)

// badReplacements are suggestion values that are never acceptable swaps:
// preposition/conjunction exchanges and known nonsense outputs.
var badReplacements = map[string]struct{}{
	"of": {}, "or": {}, "for": {}, "to": {}, "not": {}, "knot": {},
	"on": {}, "an": {}, "in": {}, "at": {},
	"goo": {}, "allow": {}, "fellow": {}, "flow": {},
	"ofr": {}, "ofllow": {}, "fro": {}, "fo": {}, "ot": {}, "ont": {}, "nto": {},
	"go not": {}, "goo not": {},
}

// Default returns the Table built from the embedded default tables.
func Default() (*Table, error) {
	return load(defaultsYAML)
}

// LoadFile loads a rules file from disk. The file fully replaces the
// embedded defaults; there is no merging.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	t, err := load(data)
	if err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	return t, nil
}

// Load loads rules from a reader.
func Load(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return load(data)
}

func load(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling rules: %w", err)
	}

	t := &Table{
		whitelist: make(map[string]struct{}, len(f.Whitelist)),
		protected: make(map[string]struct{}, len(f.Protected)),
		overrides: make(map[string][]Override),
	}

	for _, w := range f.Whitelist {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		t.whitelist[w] = struct{}{}
		if len(w) >= prefixMinLen {
			t.prefixes = append(t.prefixes, w)
		}
	}
	sort.Strings(t.prefixes)

	for _, p := range f.Protected {
		t.protected[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}

	for key, corr := range f.Shorthand {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" || corr == "" {
			return nil, fmt.Errorf("shorthand entry with empty key or correction")
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(key) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compiling shorthand pattern for %q: %w", key, err)
		}
		t.shorthand = append(t.shorthand, shorthandEntry{key: key, correction: corr, re: re})
	}
	// Deterministic scan order regardless of map iteration.
	sort.Slice(t.shorthand, func(i, j int) bool { return t.shorthand[i].key < t.shorthand[j].key })

	for _, o := range f.Overrides {
		o.Token = strings.ToLower(strings.TrimSpace(o.Token))
		if o.Token == "" {
			return nil, fmt.Errorf("override rule with empty token")
		}
		if o.Context != "" {
			re, err := regexp.Compile(o.Context)
			if err != nil {
				return nil, fmt.Errorf("compiling override context for %q: %w", o.Token, err)
			}
			o.contextRe = re
		}
		t.overrides[o.Token] = append(t.overrides[o.Token], o)
	}

	return t, nil
}

// IsWhitelisted reports whether a flagged token is a known domain term.
// Matching is case-insensitive: exact for all entries, prefix for entries
// of at least prefixMinLen bytes (so "submains" matches entry "submain"
// but "dbx" does not match "db").
func (t *Table) IsWhitelisted(token string) bool {
	tok := normalizeToken(token)
	if tok == "" {
		return false
	}
	if _, ok := t.whitelist[tok]; ok {
		return true
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(tok, p) {
			return true
		}
	}
	return false
}

// IsProtected reports whether a flagged token is a protected common word
// that checkers are known to flag incorrectly.
func (t *Table) IsProtected(token string) bool {
	_, ok := t.protected[normalizeToken(token)]
	return ok
}

// ShorthandMatches scans text for known shorthand misspellings and returns
// one CustomShorthand match per occurrence, ordered by start offset. The
// first letter's case is preserved in the replacement.
func (t *Table) ShorthandMatches(text string) []models.Match {
	var out []models.Match
	for _, e := range t.shorthand {
		for _, loc := range e.re.FindAllStringIndex(text, -1) {
			original := text[loc[0]:loc[1]]
			out = append(out, models.Match{
				Start:       loc[0],
				End:         loc[1],
				RuleID:      "shorthand/" + e.key,
				Source:      models.SourceCustomShorthand,
				Replacement: preserveLeadingCase(original, e.correction),
				Confidence:  models.ConfidenceHigh,
				Message:     fmt.Sprintf("Known misspelling of %q", e.correction),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// ApplyOverride evaluates the override rules and built-in guards for a
// checker-sourced match. It returns the (possibly rewritten) match and
// true to keep it, or false to cancel it. Re-applying the result yields
// the same outcome.
func (t *Table) ApplyOverride(m models.Match, text string) (models.Match, bool) {
	token := normalizeToken(text[m.Start:m.End])
	window := contextAround(text, m.Start, m.End)

	for _, o := range t.overrides[token] {
		if o.contextRe != nil && !o.contextRe.MatchString(window) {
			continue
		}
		rejected := containsFold(o.Reject, m.Replacement)
		if o.ReplaceWith != "" {
			m.Replacement = o.ReplaceWith
			continue
		}
		if rejected {
			return models.Match{}, false
		}
	}

	// Possessive guard: never turn a plural into a possessive
	// ("circuits" must not become "circuit's").
	if !strings.HasSuffix(token, "'s") && strings.Contains(m.Replacement, "'s") {
		return models.Match{}, false
	}

	// Junk guard: discard replacements that are not plausible words.
	lower := strings.ToLower(m.Replacement)
	if reJunkReplacement.MatchString(lower) {
		return models.Match{}, false
	}
	if _, bad := badReplacements[lower]; bad {
		return models.Match{}, false
	}

	return m, true
}

// FilterCheckerMatch runs the full suppression pipeline for one
// checker-sourced match: whitelist, protected words, then overrides.
func (t *Table) FilterCheckerMatch(m models.Match, text string) (models.Match, bool) {
	token := text[m.Start:m.End]
	if t.IsWhitelisted(token) || t.IsProtected(token) {
		return models.Match{}, false
	}
	return t.ApplyOverride(m, text)
}

// normalizeToken lowercases a flagged span and trims surrounding space
// and punctuation that checkers sometimes include.
func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '.' || r == ',' || r == ';' || r == ':' || r == '!' || r == '?'
	}))
}

// contextAround returns the fixed-width window of text around a span.
func contextAround(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

// preserveLeadingCase capitalizes the correction when the original token
// starts with an upper-case letter and the correction does not.
func preserveLeadingCase(original, correction string) string {
	or := []rune(original)
	cr := []rune(correction)
	if len(or) == 0 || len(cr) == 0 {
		return correction
	}
	if unicode.IsUpper(or[0]) && unicode.IsLower(cr[0]) {
		cr[0] = unicode.ToUpper(cr[0])
		return string(cr)
	}
	return correction
}

// containsFold reports whether list contains s, case-insensitively.
func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
