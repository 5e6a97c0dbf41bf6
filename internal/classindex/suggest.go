package classindex

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/cbl/internal/types"
)

// Suggestion pairs a known qualified class name with its similarity to the
// query, in [0, 1].
type Suggestion struct {
	Name  string
	Score float32
}

// minSuggestionScore filters out matches that share little more than a
// prefix letter. Jaro-Winkler rewards common prefixes, which suits
// namespace-qualified class names.
const minSuggestionScore = 0.80

// NearestNames returns up to limit known class names of project p ranked by
// similarity to name. Useful for "did you mean" output when a lookup misses.
func (ix *Index) NearestNames(p types.Project, name string, limit int) []Suggestion {
	if p == nil || name == "" || limit <= 0 {
		return nil
	}
	ix.mu.RLock()
	pc, ok := ix.projects[p.ID()]
	if !ok {
		ix.mu.RUnlock()
		return nil
	}
	candidates := make([]string, 0, len(pc.byName))
	for candidate := range pc.byName {
		candidates = append(candidates, candidate)
	}
	ix.mu.RUnlock()

	query := strings.ToLower(name)
	var out []Suggestion
	for _, candidate := range candidates {
		score, err := edlib.StringsSimilarity(query, strings.ToLower(candidate), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score >= minSuggestionScore {
			out = append(out, Suggestion{Name: candidate, Score: score})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
