package sentiment

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon is the fixed keyword table headlines are scored against.
//
// Bullish terms are bullish for gold: safe-haven demand, crisis, inflation
// and dovish policy. Bearish terms are bearish for gold: dollar strength,
// hawkish policy, de-escalation and risk-on flows. Multipliers scale the
// unit contribution of specific high-impact terms and must be at least 1;
// anything absent uses 1.
type Lexicon struct {
	Bullish     []string           `yaml:"bullish"`
	Bearish     []string           `yaml:"bearish"`
	Multipliers map[string]float64 `yaml:"multipliers"`
}

// DefaultLexicon is the built-in table. Its contents are configuration data
// and are kept stable for behavioral compatibility.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Bullish: []string{
			"war", "conflict", "crisis", "recession", "inflation", "rate cut",
			"dovish", "safe haven", "safe-haven", "uncertainty", "tension",
			"sanctions", "geopolitical", "fears", "invasion", "attack", "missile",
			"stimulus", "easing", "dollar weakness", "weak dollar",
			"central bank buying", "debt ceiling", "default", "bank failure",
			"sell-off", "turmoil", "record high", "gold rally", "gold surges",
		},
		Bearish: []string{
			"ceasefire", "peace", "truce", "de-escalation", "dollar strength",
			"strong dollar", "dollar rallies", "rate hike", "hawkish", "tightening",
			"rising yields", "yields rise", "yields climb", "risk-on", "strong jobs",
			"jobs beat", "economic growth", "stocks rally", "record stocks",
			"inflation eases", "gold falls", "gold slips",
			"profit-taking", "outflows",
		},
		Multipliers: map[string]float64{
			"war":             2.0,
			"invasion":        2.0,
			"rate cut":        1.8,
			"rate hike":       1.8,
			"crisis":          1.5,
			"recession":       1.5,
			"ceasefire":       1.5,
			"hawkish":         1.5,
			"dovish":          1.5,
			"bank failure":    1.5,
			"inflation":       1.3,
			"dollar strength": 1.3,
			"strong dollar":   1.3,
			"sanctions":       1.2,
			"peace":           1.2,
		},
	}
}

// LoadLexicon reads a YAML table shaped like Lexicon. An empty path or a
// missing file returns the built-in table.
func LoadLexicon(path string) (Lexicon, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultLexicon(), nil
	}
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(lex.Bullish) == 0 && len(lex.Bearish) == 0 {
		return Lexicon{}, fmt.Errorf("lexicon %s has no keywords", path)
	}
	for word, m := range lex.Multipliers {
		if m < 1 {
			return Lexicon{}, fmt.Errorf("lexicon %s: multiplier for %q is %v, must be >= 1", path, word, m)
		}
	}
	return lex, nil
}

type term struct {
	word       string
	sign       float64
	multiplier float64
	re         *regexp.Regexp
}

// compile turns the table into matchers. Keywords match case-insensitively
// on word boundaries, allowing simple plural/verb suffixes, so "war" matches
// "wars" but not "toward" or "software".
func (l Lexicon) compile() []term {
	mult := make(map[string]float64, len(l.Multipliers))
	for k, v := range l.Multipliers {
		mult[normalizeKeyword(k)] = v
	}

	seen := make(map[string]bool)
	var terms []term
	add := func(words []string, sign float64) {
		for _, w := range words {
			w = normalizeKeyword(w)
			if w == "" || seen[w] {
				continue
			}
			seen[w] = true
			m, ok := mult[w]
			if !ok || m < 1 {
				m = 1
			}
			terms = append(terms, term{
				word:       w,
				sign:       sign,
				multiplier: m,
				re:         regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `(?:s|es|ed|ing)?\b`),
			})
		}
	}
	add(l.Bullish, 1)
	add(l.Bearish, -1)

	sort.SliceStable(terms, func(i, j int) bool { return terms[i].word < terms[j].word })
	return terms
}

func normalizeKeyword(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}
