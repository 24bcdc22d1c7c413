// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package recommend

import "sort"

// Hybrid blend weights.
const (
	hybridContentWeight = 0.6
	hybridCollabWeight  = 0.4
)

// blendHybrid merges independently-computed content and collaborative
// score lists by event id. Events in both lists get the summed weighted
// score capped at 1.0, concatenated reasons and the hybrid tag; events in
// one list keep their origin tag with a down-weighted score. Candidate
// order is content list first, then collaborative-only entries, so stable
// sorting breaks ties reproducibly.
func blendHybrid(content, collab []scored) []scored {
	collabByEvent := make(map[string]scored, len(collab))
	for _, s := range collab {
		collabByEvent[s.EventID] = s
	}

	out := make([]scored, 0, len(content)+len(collab))
	merged := make(map[string]struct{}, len(content))

	for _, c := range content {
		merged[c.EventID] = struct{}{}
		blended := scored{
			EventID:   c.EventID,
			Score:     c.Score * hybridContentWeight,
			Reason:    c.Reason,
			Algorithm: AlgorithmContent,
		}
		if l, ok := collabByEvent[c.EventID]; ok {
			blended.Score += l.Score * hybridCollabWeight
			if blended.Score > 1.0 {
				blended.Score = 1.0
			}
			blended.Reason = c.Reason + "; " + l.Reason
			blended.Algorithm = AlgorithmHybrid
		}
		out = append(out, blended)
	}

	for _, l := range collab {
		if _, ok := merged[l.EventID]; ok {
			continue
		}
		out = append(out, scored{
			EventID:   l.EventID,
			Score:     l.Score * hybridCollabWeight,
			Reason:    l.Reason,
			Algorithm: AlgorithmCollaborative,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
