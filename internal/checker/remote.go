package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"jobproof/internal/models"
	"jobproof/internal/transport"
)

// DefaultGrammarURL is the public grammar-check endpoint. A self-hosted
// instance can be configured instead.
const DefaultGrammarURL = "https://api.languagetool.org/v2/check"

// maxCheckRunes caps how much text goes into a single check call. Longer
// fields are split at whitespace and checked in pieces, with match
// offsets shifted back into the original text.
const maxCheckRunes = 10000

// skippedRules are grammar rules whose findings are noise for terse
// trade notes: tradespeople write fragments, not prose.
var skippedRules = map[string]struct{}{
	"WHITESPACE_RULE":          {},
	"UPPERCASE_SENTENCE_START": {},
	"SENTENCE_WHITESPACE":      {},
}

// RemoteChecker calls a LanguageTool-compatible grammar service.
type RemoteChecker struct {
	endpoint string
	language string
	http     *transport.Client
}

// NewRemoteChecker creates a RemoteChecker that shares tc's rate windows
// with the rest of the pipeline.
func NewRemoteChecker(endpoint string, tc *transport.Client) *RemoteChecker {
	if endpoint == "" {
		endpoint = DefaultGrammarURL
	}
	return &RemoteChecker{
		endpoint: endpoint,
		language: models.LanguageVariant,
		http:     tc,
	}
}

// Name implements TextChecker.
func (c *RemoteChecker) Name() string { return "remote-grammar" }

// ltResponse is the grammar service's response shape, reduced to the
// fields the pipeline uses.
type ltResponse struct {
	Matches []ltMatch `json:"matches"`
}

type ltMatch struct {
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	Message string `json:"message"`
	Rule    struct {
		ID string `json:"id"`
	} `json:"rule"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
}

// Check implements TextChecker. Matches carry High confidence; the
// engine decides whether they are safe to auto-apply.
func (c *RemoteChecker) Check(ctx context.Context, text string) ([]models.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var out []models.Match
	for _, ch := range splitForCheck(text) {
		matches, err := c.checkChunk(ctx, ch.text)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			m.Start += ch.byteOffset
			m.End += ch.byteOffset
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out, nil
}

func (c *RemoteChecker) checkChunk(ctx context.Context, text string) ([]models.Match, error) {
	form := url.Values{
		"text":     {text},
		"language": {c.language},
	}

	body, err := c.http.Do(ctx, "grammar check", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp ltResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &transport.MalformedResponseError{Reason: fmt.Sprintf("decoding grammar response: %v", err)}
	}

	// Offsets come back in characters; string surgery needs bytes.
	runeToByte := runeIndex(text)

	var out []models.Match
	for _, lm := range resp.Matches {
		if _, skip := skippedRules[lm.Rule.ID]; skip {
			continue
		}
		if lm.Length <= 0 || lm.Offset < 0 || lm.Offset+lm.Length >= len(runeToByte) {
			continue
		}

		m := models.Match{
			Start:      runeToByte[lm.Offset],
			End:        runeToByte[lm.Offset+lm.Length],
			RuleID:     lm.Rule.ID,
			Source:     models.SourceRemoteGrammar,
			Confidence: models.ConfidenceHigh,
			Message:    lm.Message,
		}
		if len(lm.Replacements) > 0 {
			m.Replacement = lm.Replacements[0].Value
		}
		if m.Replacement == "" {
			// No usable suggestion; nothing to apply or review.
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// chunk is one piece of a long field, with the byte offset of its start
// in the original text.
type chunk struct {
	text       string
	byteOffset int
}

// splitForCheck splits text into chunks of at most maxCheckRunes,
// breaking at the last whitespace before the limit so no word straddles
// a boundary.
func splitForCheck(text string) []chunk {
	if len(text) <= maxCheckRunes {
		// Byte length bounds rune length, no need to count.
		return []chunk{{text: text}}
	}

	var chunks []chunk
	offset := 0
	rest := text
	for rest != "" {
		runes := []rune(rest)
		if len(runes) <= maxCheckRunes {
			chunks = append(chunks, chunk{text: rest, byteOffset: offset})
			break
		}
		cut := maxCheckRunes
		for i := cut; i > cut/2; i-- {
			if runes[i-1] == ' ' || runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		piece := string(runes[:cut])
		chunks = append(chunks, chunk{text: piece, byteOffset: offset})
		offset += len(piece)
		rest = rest[len(piece):]
	}
	return chunks
}

// runeIndex maps rune index -> byte offset, with one trailing entry for
// the end of the string.
func runeIndex(s string) []int {
	idx := make([]int, 0, len(s)+1)
	for i := range s {
		idx = append(idx, i)
	}
	idx = append(idx, len(s))
	return idx
}
