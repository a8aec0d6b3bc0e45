package taxonomy

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// synonyms maps every normalized alias (code, label, tag, tag suffix,
// keyword) to its canonical code. Built once at package init from the ordered
// catalog; never mutated afterwards, so concurrent reads are safe.
var synonyms = buildSynonyms()

func buildSynonyms() map[string]Code {
	m := make(map[string]Code)
	register := func(term string, code Code) {
		key := Normalize(term)
		if key == "" {
			return
		}
		// First-registered wins, keeping collisions deterministic.
		if _, exists := m[key]; !exists {
			m[key] = code
		}
	}
	for _, def := range catalog {
		register(string(def.Code), def.Code)
		register(def.LabelEN, def.Code)
		register(def.LabelPT, def.Code)
		for _, tag := range def.Tags {
			register(tag, def.Code)
			if _, suffix, ok := strings.Cut(tag, ":"); ok {
				register(suffix, def.Code)
			}
		}
		for _, kw := range def.Keywords {
			register(kw, def.Code)
		}
	}
	return m
}

// Normalize lowercases text, strips diacritics via Unicode decomposition and
// trims surrounding whitespace. "GLÚTEN" and "gluten" normalize identically.
func Normalize(text string) string {
	stripper := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(stripper, text)
	if err != nil {
		out = text
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Resolve maps free-form allergen text (any catalog language) to a canonical
// code. The second return is false when the input is not recognized; callers
// decide whether that is fatal.
func Resolve(token string) (Code, bool) {
	code, ok := synonyms[Normalize(token)]
	return code, ok
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Tokenize normalizes text and splits it into alphanumeric tokens longer
// than two characters.
func Tokenize(text string) []string {
	cleaned := nonAlnum.ReplaceAllString(Normalize(text), " ")
	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// DetectInTexts scans ingredient strings for allergen mentions. Candidate
// phrases are all unigrams, bigrams and trigrams over the flattened token
// stream so multi-word ingredients like "brazil nut" match. The result is a
// sorted, deduplicated code list; no scoring happens here.
func DetectInTexts(texts []string) []Code {
	var tokens []string
	for _, text := range texts {
		tokens = append(tokens, Tokenize(text)...)
	}

	candidates := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		candidates[tok] = struct{}{}
	}
	for _, size := range []int{2, 3} {
		for i := 0; i+size <= len(tokens); i++ {
			candidates[strings.Join(tokens[i:i+size], " ")] = struct{}{}
		}
	}

	found := make(map[Code]struct{})
	for cand := range candidates {
		if code, ok := Resolve(cand); ok {
			found[code] = struct{}{}
		}
	}

	out := make([]Code, 0, len(found))
	for code := range found {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
