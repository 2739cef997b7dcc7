package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/clearview/clearview_api/pkg/models"
)

// ParseSources decodes the source analyzer's output. Anything but a single
// JSON object with the two expected keys and non-negative integer counts is
// rejected with ErrParse. A surrounding markdown code fence is tolerated.
func ParseSources(raw string) (models.SourcesMentioned, error) {
	var out models.SourcesMentioned

	dec := json.NewDecoder(strings.NewReader(stripFence(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return models.SourcesMentioned{}, fmt.Errorf("%w: sources: %v", models.ErrParse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.SourcesMentioned{}, fmt.Errorf("%w: sources: trailing data after object", models.ErrParse)
	}

	if out.CredibleNewsSources == nil {
		out.CredibleNewsSources = map[string]int{}
	}
	if out.SocialMedia == nil {
		out.SocialMedia = map[string]int{}
	}
	for _, m := range []map[string]int{out.CredibleNewsSources, out.SocialMedia} {
		for name, n := range m {
			if strings.TrimSpace(name) == "" {
				return models.SourcesMentioned{}, fmt.Errorf("%w: sources: empty source name", models.ErrParse)
			}
			if n < 0 {
				return models.SourcesMentioned{}, fmt.Errorf("%w: sources: negative count for %q", models.ErrParse, name)
			}
		}
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// MatchCategory maps the categorizer's output onto Categories, ignoring case,
// accents and surrounding punctuation. Output naming no category, or more
// than one, is rejected with ErrParse.
func MatchCategory(raw string) (string, error) {
	got := foldLabel(raw)
	if got == "" {
		return "", fmt.Errorf("%w: empty category", models.ErrParse)
	}

	var found []string
	for _, c := range Categories {
		want := foldLabel(c)
		if got == want {
			return c, nil
		}
		if containsWord(got, want) {
			found = append(found, c)
		}
	}
	if len(found) == 1 {
		return found[0], nil
	}
	return "", fmt.Errorf("%w: unrecognized category %q", models.ErrParse, raw)
}

func foldLabel(s string) string {
	// transformers carry state, so each call builds its own chain
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.TrimFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsWord(haystack, word string) bool {
	for _, f := range strings.FieldsFunc(haystack, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if f == word {
			return true
		}
	}
	return false
}
