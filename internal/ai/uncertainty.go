package ai

import (
	"github.com/myrjola/twentyq/internal/models"
	"strings"
	"unicode"
)

const reflectionPrompt = "Is the proposed answer:\n" +
	"(A) Correct\n(B) Incorrect\n(C) I am not sure.\n" +
	"The output should strictly use the following template:\n" +
	"explanation: [insert analysis], answer: [choose one letter from among choices A through C]"

// observedWeight is the share of observed consistency in the combined confidence.
const observedWeight = 0.7

// score combines the consistency of the samples with the self-reported certainty.
func score(text string, samples []string, reflection string) models.Metrics {
	observed := observedConsistency(text, samples)
	reported := selfReportedCertainty(reflection)
	return models.Metrics{
		Confidence:            clamp(observedWeight*observed + (1-observedWeight)*reported),
		ObservedConsistency:   observed,
		SelfReportedCertainty: reported,
	}
}

// observedConsistency is the mean word-set Jaccard similarity between text and each sample.
func observedConsistency(text string, samples []string) float64 {
	if len(samples) == 0 {
		return 1
	}
	reference := wordSet(text)
	var total float64
	for _, sample := range samples {
		total += jaccard(reference, wordSet(sample))
	}
	return clamp(total / float64(len(samples)))
}

// selfReportedCertainty maps the graded choice to a score. Unparsable replies count as not sure.
func selfReportedCertainty(reflection string) float64 {
	lower := strings.ToLower(reflection)
	idx := strings.LastIndex(lower, "answer:")
	if idx < 0 {
		return 0.5 //nolint:mnd // not sure
	}
	choice := strings.TrimLeftFunc(lower[idx+len("answer:"):], func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == '['
	})
	switch {
	case strings.HasPrefix(choice, "a"):
		return 1
	case strings.HasPrefix(choice, "b"):
		return 0
	default:
		return 0.5 //nolint:mnd // not sure
	}
}

func wordSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	var intersection int
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(a)+len(b)-intersection)
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
