package sentiment

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gold-pulse/internal/domain"
)

const (
	// UnitContribution is the signed score a single keyword match adds
	// before its multiplier.
	UnitContribution = 0.3

	// MaxAdjustmentPercent bounds the price adjustment derived from the
	// aggregate score.
	MaxAdjustmentPercent = 3.0

	// MinHeadlineLength drops fragments too short to carry meaning.
	MinHeadlineLength = 10

	// categoryBand is the |score| below which matched triggers are reported
	// as mixed rather than directional.
	categoryBand = 0.1

	summaryTriggers = 3
)

// Analyzer scores headlines against a compiled lexicon. It holds no mutable
// state and is safe for concurrent use.
type Analyzer struct {
	terms []term
}

// NewAnalyzer compiles lex into word-boundary matchers.
func NewAnalyzer(lex Lexicon) *Analyzer {
	return &Analyzer{terms: lex.compile()}
}

var defaultAnalyzer = NewAnalyzer(DefaultLexicon())

// Analyze scores headlines with the built-in lexicon.
func Analyze(headlines []string) domain.SentimentResult {
	return defaultAnalyzer.Analyze(headlines)
}

type headlineScore struct {
	score  float64
	weight float64
}

type triggerTally struct {
	word   string
	sign   float64
	count  int
	weight float64
}

// Analyze is deterministic for a given lexicon. The Timestamp of the result
// is left zero for the caller to stamp.
func (a *Analyzer) Analyze(headlines []string) domain.SentimentResult {
	kept := make([]string, 0, len(headlines))
	for _, h := range headlines {
		h = strings.TrimSpace(h)
		if utf8.RuneCountInString(h) < MinHeadlineLength {
			continue
		}
		kept = append(kept, h)
	}
	if len(kept) == 0 {
		return domain.NeutralSentiment(time.Time{})
	}

	tallies := make(map[string]*triggerTally)
	scores := make([]headlineScore, 0, len(kept))
	totalTriggers := 0

	for _, h := range kept {
		hs := headlineScore{weight: 1}
		maxMult := 0.0
		for _, t := range a.terms {
			if !t.re.MatchString(h) {
				continue
			}
			hs.score += t.sign * UnitContribution * t.multiplier
			if t.multiplier > maxMult {
				maxMult = t.multiplier
			}
			totalTriggers++

			tally, ok := tallies[t.word]
			if !ok {
				tally = &triggerTally{word: t.word, sign: t.sign}
				tallies[t.word] = tally
			}
			tally.count++
			tally.weight += t.multiplier
		}
		if maxMult > 0 {
			hs.weight = maxMult
		}
		hs.score = clamp(hs.score, -1, 1)
		scores = append(scores, hs)
	}

	var num, den float64
	for _, s := range scores {
		num += s.score * s.weight
		den += s.weight
	}
	overall := 0.0
	if den > 0 {
		overall = clamp(num/den, -1, 1)
	}

	ranked := rankTriggers(tallies)
	words := make([]string, len(ranked))
	for i, t := range ranked {
		words[i] = t.word
	}

	category, summary := summarize(overall, ranked, len(kept))

	return domain.SentimentResult{
		Score:             overall,
		AdjustmentPercent: clamp(overall*MaxAdjustmentPercent, -MaxAdjustmentPercent, MaxAdjustmentPercent),
		Confidence:        math.Min(1, float64(totalTriggers)/float64(len(kept)*2)),
		Category:          category,
		TriggerWords:      words,
		Summary:           summary,
		Headlines:         kept,
	}
}

// rankTriggers orders by accumulated weight, then count, then word.
func rankTriggers(tallies map[string]*triggerTally) []triggerTally {
	out := make([]triggerTally, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].weight != out[j].weight {
			return out[i].weight > out[j].weight
		}
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].word < out[j].word
	})
	return out
}

func summarize(score float64, ranked []triggerTally, headlines int) (domain.SentimentCategory, string) {
	if len(ranked) == 0 {
		return domain.SentimentNeutral, fmt.Sprintf("Neutral: no market-moving keywords in %d headlines", headlines)
	}

	switch {
	case score > categoryBand:
		return domain.SentimentBullish, "Bullish for gold: " + strings.Join(topBySign(ranked, 1), ", ")
	case score < -categoryBand:
		return domain.SentimentBearish, "Bearish for gold: " + strings.Join(topBySign(ranked, -1), ", ")
	}

	bull, bear := 0, 0
	for _, t := range ranked {
		if t.sign > 0 {
			bull += t.count
		} else {
			bear += t.count
		}
	}
	return domain.SentimentMixed, fmt.Sprintf("Mixed signals: %d bullish vs %d bearish triggers", bull, bear)
}

func topBySign(ranked []triggerTally, sign float64) []string {
	out := make([]string, 0, summaryTriggers)
	for _, t := range ranked {
		if t.sign != sign {
			continue
		}
		out = append(out, t.word)
		if len(out) == summaryTriggers {
			break
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
