// Package candidates loads the contrast sets a run generates dialogues for.
//
// A contrast-set file is either a mapping from arbitrary keys to sets or a list of sets, written in JSON or YAML:
//
//	{"animals-1": {"items": ["cat", "dog", "horse"], "target": "dog"}, ...}
//
// Dialogue ids are assigned from zero in file order.
package candidates

import (
	"github.com/myrjola/twentyq/internal/errors"
	"github.com/myrjola/twentyq/internal/models"
	"gopkg.in/yaml.v3"
	"log/slog"
	"os"
	"slices"
)

var (
	ErrEmptyCandidates    = errors.NewSentinel("contrast set has no items")
	ErrTargetNotCandidate = errors.NewSentinel("target is not one of the items")
	ErrUnsupportedLayout  = errors.NewSentinel("contrast sets must be a mapping or a list")
)

type contrastSet struct {
	Items  []string `yaml:"items"`
	Target string   `yaml:"target"`
}

// Load reads and validates the contrast sets in path.
func Load(path string) ([]models.CandidateSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read contrast sets", slog.String("path", path))
	}
	sets, err := Parse(content)
	if err != nil {
		return nil, errors.Wrap(err, "parse contrast sets", slog.String("path", path))
	}
	return sets, nil
}

// Parse decodes contrast sets keeping the order of the document.
func Parse(content []byte) ([]models.CandidateSet, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, errors.Wrap(err, "unmarshal")
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var (
		doc   = root.Content[0]
		nodes []*yaml.Node
		keys  []string
	)
	switch doc.Kind { //nolint:exhaustive // other kinds are rejected
	case yaml.MappingNode:
		for i := 0; i+1 < len(doc.Content); i += 2 {
			keys = append(keys, doc.Content[i].Value)
			nodes = append(nodes, doc.Content[i+1])
		}
	case yaml.SequenceNode:
		nodes = doc.Content
	default:
		return nil, errors.Wrap(ErrUnsupportedLayout, "decode document", slog.Int("line", doc.Line))
	}

	sets := make([]models.CandidateSet, 0, len(nodes))
	for id, node := range nodes {
		attrs := []slog.Attr{slog.Int("dialogue_id", id), slog.Int("line", node.Line)}
		if keys != nil {
			attrs = append(attrs, slog.String("key", keys[id]))
		}

		var cs contrastSet
		if err := node.Decode(&cs); err != nil {
			return nil, errors.Wrap(err, "decode contrast set", attrs...)
		}
		if len(cs.Items) == 0 {
			return nil, errors.Wrap(ErrEmptyCandidates, "validate contrast set", attrs...)
		}
		if !slices.Contains(cs.Items, cs.Target) {
			return nil, errors.Wrap(ErrTargetNotCandidate, "validate contrast set",
				append(attrs, slog.String("target", cs.Target))...)
		}
		sets = append(sets, models.CandidateSet{ID: id, Items: cs.Items, Target: cs.Target})
	}
	return sets, nil
}
