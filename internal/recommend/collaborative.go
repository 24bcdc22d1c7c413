// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package recommend

import (
	"fmt"
	"sort"

	"github.com/tomtom215/conventus/internal/models"
)

// collaborativeCeiling is the empirical normalization divisor for raw
// co-interaction scores.
const collaborativeCeiling = 8.0

// Bonuses for stronger interaction types by similar users.
const (
	bookmarkBonus = 2.0
	rsvpBonus     = 1.5
)

// scoreCollaborative surfaces events that users with overlapping positive
// interaction history engaged with and the requesting user has not seen.
//
// own is the requesting user's full history, coInteractions every
// interaction touching the user's positively-interacted events, and
// similarInteractions the full history of the users found there. A user
// with no positive history yields an empty list (cold start).
func scoreCollaborative(userID string, own, coInteractions, similarInteractions []models.UserInteraction) []scored {
	positive := make(map[string]struct{})
	seen := make(map[string]struct{})
	for _, in := range own {
		seen[in.EventID] = struct{}{}
		if in.Type.Positive() {
			positive[in.EventID] = struct{}{}
		}
	}
	if len(positive) == 0 {
		return nil
	}

	// Similarity per other user: count of distinct shared positive events.
	sharedEvents := make(map[string]map[string]struct{})
	for _, in := range coInteractions {
		if in.UserID == userID || !in.Type.Positive() {
			continue
		}
		if _, shared := positive[in.EventID]; !shared {
			continue
		}
		if sharedEvents[in.UserID] == nil {
			sharedEvents[in.UserID] = make(map[string]struct{})
		}
		sharedEvents[in.UserID][in.EventID] = struct{}{}
	}
	if len(sharedEvents) == 0 {
		return nil
	}
	similarity := make(map[string]float64, len(sharedEvents))
	for user, events := range sharedEvents {
		similarity[user] = float64(len(events))
	}

	// Raw score per unseen event: summed similarity of each engaging
	// similar user plus a bonus for stronger interaction types.
	raw := make(map[string]float64)
	supporters := make(map[string]map[string]struct{})
	var order []string
	for _, in := range similarInteractions {
		sim, isSimilar := similarity[in.UserID]
		if !isSimilar || !in.Type.Positive() {
			continue
		}
		if _, already := seen[in.EventID]; already {
			continue
		}

		if _, known := raw[in.EventID]; !known {
			order = append(order, in.EventID)
		}
		raw[in.EventID] += sim + interactionBonus(in.Type)
		if supporters[in.EventID] == nil {
			supporters[in.EventID] = make(map[string]struct{})
		}
		supporters[in.EventID][in.UserID] = struct{}{}
	}

	out := make([]scored, 0, len(order))
	for _, eventID := range order {
		score := raw[eventID] / collaborativeCeiling
		if score > 1.0 {
			score = 1.0
		}
		out = append(out, scored{
			EventID:   eventID,
			Score:     score,
			Reason:    collaborativeReason(len(supporters[eventID])),
			Algorithm: AlgorithmCollaborative,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// interactionBonus weights stronger engagement types.
func interactionBonus(t models.InteractionType) float64 {
	switch t {
	case models.InteractionBookmark:
		return bookmarkBonus
	case models.InteractionRSVP:
		return rsvpBonus
	default:
		return 0
	}
}

// collaborativeReason explains the co-interaction signal.
func collaborativeReason(supporters int) string {
	if supporters == 1 {
		return "A user with similar taste engaged with this event"
	}
	return fmt.Sprintf("%d users with similar taste engaged with this event", supporters)
}
