// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package recommend

import (
	"testing"

	"github.com/tomtom215/conventus/internal/models"
)

func interaction(user, event string, t models.InteractionType) models.UserInteraction {
	return models.UserInteraction{UserID: user, EventID: event, Type: t}
}

func TestScoreCollaborative_ColdStart(t *testing.T) {
	tests := []struct {
		name string
		own  []models.UserInteraction
	}{
		{"no history", nil},
		{"only non-positive history", []models.UserInteraction{
			interaction("u1", "e1", models.InteractionView),
			interaction("u1", "e2", models.InteractionHide),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := scoreCollaborative("u1", tt.own, nil, nil)
			if len(out) != 0 {
				t.Errorf("got %d results, want empty (cold start)", len(out))
			}
		})
	}
}

func TestScoreCollaborative_SurfacesUnseenEvents(t *testing.T) {
	own := []models.UserInteraction{
		interaction("u1", "shared", models.InteractionBookmark),
	}
	// u2 shares one positive event with u1 (similarity 1).
	co := []models.UserInteraction{
		interaction("u1", "shared", models.InteractionBookmark),
		interaction("u2", "shared", models.InteractionRSVP),
	}
	similar := []models.UserInteraction{
		interaction("u2", "shared", models.InteractionRSVP),
		interaction("u2", "new-event", models.InteractionBookmark),
		interaction("u2", "viewed-only", models.InteractionView),
	}

	out := scoreCollaborative("u1", own, co, similar)

	if len(out) != 1 {
		t.Fatalf("got %d results, want 1 (only positively-engaged unseen events)", len(out))
	}
	if out[0].EventID != "new-event" {
		t.Errorf("EventID = %s, want new-event", out[0].EventID)
	}
	// similarity 1 + bookmark bonus 2, normalized by 8.
	if !almostEqual(out[0].Score, 3.0/8.0) {
		t.Errorf("Score = %v, want 0.375", out[0].Score)
	}
	if out[0].Algorithm != AlgorithmCollaborative {
		t.Errorf("Algorithm = %s", out[0].Algorithm)
	}
}

func TestScoreCollaborative_ExcludesSeenEvents(t *testing.T) {
	own := []models.UserInteraction{
		interaction("u1", "shared", models.InteractionClick),
		interaction("u1", "already-seen", models.InteractionView),
	}
	co := []models.UserInteraction{
		interaction("u2", "shared", models.InteractionClick),
	}
	similar := []models.UserInteraction{
		interaction("u2", "shared", models.InteractionClick),
		interaction("u2", "already-seen", models.InteractionBookmark),
	}

	out := scoreCollaborative("u1", own, co, similar)
	if len(out) != 0 {
		t.Errorf("got %v, want empty: the user already saw the only candidate", out)
	}
}

func TestScoreCollaborative_SimilarityAndBonusesAccumulate(t *testing.T) {
	own := []models.UserInteraction{
		interaction("u1", "a", models.InteractionBookmark),
		interaction("u1", "b", models.InteractionRSVP),
	}
	// u2 shares both events (similarity 2), u3 shares one (similarity 1).
	co := []models.UserInteraction{
		interaction("u2", "a", models.InteractionClick),
		interaction("u2", "b", models.InteractionClick),
		interaction("u3", "a", models.InteractionBookmark),
	}
	similar := []models.UserInteraction{
		interaction("u2", "a", models.InteractionClick),
		interaction("u2", "b", models.InteractionClick),
		interaction("u2", "candidate", models.InteractionRSVP),
		interaction("u3", "a", models.InteractionBookmark),
		interaction("u3", "candidate", models.InteractionBookmark),
	}

	out := scoreCollaborative("u1", own, co, similar)
	if len(out) != 1 {
		t.Fatalf("got %d results, want 1", len(out))
	}
	// u2: similarity 2 + rsvp 1.5 = 3.5; u3: similarity 1 + bookmark 2 = 3.
	// raw 6.5 / 8 = 0.8125.
	if !almostEqual(out[0].Score, 6.5/8.0) {
		t.Errorf("Score = %v, want 0.8125", out[0].Score)
	}
}

func TestScoreCollaborative_ClampsAtOne(t *testing.T) {
	own := []models.UserInteraction{
		interaction("u1", "a", models.InteractionBookmark),
		interaction("u1", "b", models.InteractionBookmark),
		interaction("u1", "c", models.InteractionBookmark),
	}
	var co, similar []models.UserInteraction
	for _, u := range []string{"u2", "u3", "u4"} {
		for _, e := range []string{"a", "b", "c"} {
			co = append(co, interaction(u, e, models.InteractionBookmark))
			similar = append(similar, interaction(u, e, models.InteractionBookmark))
		}
		similar = append(similar, interaction(u, "hot", models.InteractionBookmark))
	}

	out := scoreCollaborative("u1", own, co, similar)
	if len(out) != 1 {
		t.Fatalf("got %d results, want 1", len(out))
	}
	// raw 3 users × (similarity 3 + bookmark 2) = 15, clamped.
	if !almostEqual(out[0].Score, 1.0) {
		t.Errorf("Score = %v, want clamped 1.0", out[0].Score)
	}
}
