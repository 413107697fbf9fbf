package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobproof/internal/models"
	"jobproof/internal/transport"
)

func newRemote(t *testing.T, handler http.HandlerFunc) *RemoteChecker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := transport.DefaultConfig()
	cfg.Retry.MaxAttempts = 1
	return NewRemoteChecker(srv.URL, transport.NewClient(cfg))
}

func TestRemoteChecker_RequestShape(t *testing.T) {
	var gotForm string
	c := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm.Encode()
		w.Write([]byte(`{"matches":[]}`))
	})

	_, err := c.Check(context.Background(), "all good here")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !strings.Contains(gotForm, "language=en-AU") {
		t.Errorf("form missing language variant: %q", gotForm)
	}
	if !strings.Contains(gotForm, "text=all+good+here") {
		t.Errorf("form missing text: %q", gotForm)
	}
}

func TestRemoteChecker_EmptyTextSkipsCall(t *testing.T) {
	called := false
	c := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"matches":[]}`))
	})

	matches, err := c.Check(context.Background(), "   \n ")
	if err != nil || matches != nil {
		t.Fatalf("Check = %v, %v", matches, err)
	}
	if called {
		t.Error("blank text should not reach the service")
	}
}

func TestRemoteChecker_ByteOffsets(t *testing.T) {
	// Service offsets are character positions; "ë" is two bytes, so the
	// byte span of "recieved" is shifted by one.
	text := "Tëst recieved"
	c := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[{"offset":5,"length":8,"message":"Possible spelling mistake",
			"rule":{"id":"MORFOLOGIK_RULE_EN_AU"},"replacements":[{"value":"received"}]}]}`))
	})

	matches, err := c.Check(context.Background(), text)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("want 1 match, got %d", len(matches))
	}
	m := matches[0]
	if text[m.Start:m.End] != "recieved" {
		t.Errorf("span covers %q, want %q", text[m.Start:m.End], "recieved")
	}
	if m.Replacement != "received" {
		t.Errorf("replacement = %q", m.Replacement)
	}
	if m.Source != models.SourceRemoteGrammar || m.Confidence != models.ConfidenceHigh {
		t.Errorf("source/confidence = %q/%q", m.Source, m.Confidence)
	}
}

func TestRemoteChecker_FiltersNoise(t *testing.T) {
	c := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[
			{"offset":0,"length":4,"rule":{"id":"UPPERCASE_SENTENCE_START"},"replacements":[{"value":"Test"}]},
			{"offset":0,"length":4,"rule":{"id":"WHITESPACE_RULE"},"replacements":[{"value":"test "}]},
			{"offset":5,"length":4,"rule":{"id":"SOME_RULE"},"replacements":[]},
			{"offset":99,"length":4,"rule":{"id":"OUT_OF_RANGE"},"replacements":[{"value":"x"}]}
		]}`))
	})

	matches, err := c.Check(context.Background(), "test text")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("noise rules, empty replacements and bad spans must be dropped, got %+v", matches)
	}
}

func TestRemoteChecker_ServerError(t *testing.T) {
	c := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Check(context.Background(), "some text")
	var te *transport.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want TransportError for 5xx, got %v", err)
	}
	if !transport.CountsTowardBreaker(err) {
		t.Error("5xx must count toward the circuit breaker")
	}
}

func TestRemoteChecker_MalformedBody(t *testing.T) {
	c := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := c.Check(context.Background(), "some text")
	var me *transport.MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("want MalformedResponseError, got %v", err)
	}
}

func TestSplitForCheck(t *testing.T) {
	word := strings.Repeat("a", 100) + " "
	long := strings.Repeat(word, 150) // ~15k chars

	chunks := splitForCheck(long)
	if len(chunks) < 2 {
		t.Fatalf("long text should split, got %d chunks", len(chunks))
	}
	var rebuilt strings.Builder
	offset := 0
	for _, ch := range chunks {
		if ch.byteOffset != offset {
			t.Errorf("chunk offset = %d, want %d", ch.byteOffset, offset)
		}
		rebuilt.WriteString(ch.text)
		offset += len(ch.text)
	}
	if rebuilt.String() != long {
		t.Error("chunks do not reassemble into the original text")
	}
	for _, ch := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(ch.text, " ") {
			t.Errorf("chunk should break at whitespace, ends with %q", ch.text[len(ch.text)-1:])
		}
	}
}
