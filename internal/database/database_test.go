// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/conventus/internal/config"
	"github.com/tomtom215/conventus/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testEvent(sourceID, externalID, title string, start time.Time) models.Event {
	now := time.Now()
	return models.Event{
		SourceID:   sourceID,
		ExternalID: externalID,
		Title:      title,
		URL:        "https://example.com/" + externalID,
		StartTime:  start,
		Tags:       []string{"technology"},
		FetchedAt:  now,
		UpdatedAt:  now,
	}
}

func TestUpsertEvents_InsertAndUpdate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)

	n, err := db.UpsertEvents(ctx, []models.Event{
		testEvent("eventbrite", "e1", "Original Title", start),
		testEvent("eventbrite", "e2", "Second", start),
	})
	if err != nil {
		t.Fatalf("UpsertEvents() error = %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d rows, want 2", n)
	}

	// Same (source_id, external_id) updates in place.
	n, err = db.UpsertEvents(ctx, []models.Event{
		testEvent("eventbrite", "e1", "Updated Title", start),
	})
	if err != nil {
		t.Fatalf("second UpsertEvents() error = %v", err)
	}
	if n != 1 {
		t.Errorf("wrote %d rows, want 1", n)
	}

	events, err := db.UpcomingEvents(ctx, time.Now(), 0)
	if err != nil {
		t.Fatalf("UpcomingEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (upsert must not duplicate)", len(events))
	}

	byExternal := make(map[string]models.Event)
	for _, ev := range events {
		byExternal[ev.ExternalID] = ev
	}
	if byExternal["e1"].Title != "Updated Title" {
		t.Errorf("e1 title = %q, want Updated Title", byExternal["e1"].Title)
	}
	if len(byExternal["e1"].Tags) != 1 || byExternal["e1"].Tags[0] != "technology" {
		t.Errorf("e1 tags = %v", byExternal["e1"].Tags)
	}
}

func TestUpcomingEvents_ExcludesPast(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.UpsertEvents(ctx, []models.Event{
		testEvent("meetup", "past", "Past", time.Now().Add(-24*time.Hour)),
		testEvent("meetup", "future", "Future", time.Now().Add(24*time.Hour)),
	})
	if err != nil {
		t.Fatal(err)
	}

	events, err := db.UpcomingEvents(ctx, time.Now(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ExternalID != "future" {
		t.Errorf("events = %+v, want only the future one", events)
	}
}

func TestEventsByIDs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	batch := []models.Event{testEvent("meetup", "a", "A", time.Now().Add(time.Hour))}
	if _, err := db.UpsertEvents(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if batch[0].ID == "" {
		t.Fatal("UpsertEvents did not assign an id")
	}

	found, err := db.EventsByIDs(ctx, []string{batch[0].ID, "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Fatalf("found %d events, want 1", len(found))
	}
	if found[batch[0].ID].Title != "A" {
		t.Errorf("title = %q", found[batch[0].ID].Title)
	}
}

func TestSeedAndActiveSources(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.SeedSources(ctx, []models.EventSource{
		{ID: "eventbrite", Name: "Eventbrite", Active: true},
		{ID: "meetup", Name: "Meetup", Active: true},
	})
	if err != nil {
		t.Fatalf("SeedSources() error = %v", err)
	}

	// Re-seeding preserves rows without duplicating them.
	if err := db.SeedSources(ctx, []models.EventSource{
		{ID: "eventbrite", Name: "Eventbrite API", Active: true},
	}); err != nil {
		t.Fatal(err)
	}

	sources, err := db.ActiveSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].ID != "eventbrite" || sources[0].Name != "Eventbrite API" {
		t.Errorf("first source = %+v", sources[0])
	}
}

func TestPreferenceRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	lat, lng := 52.52, 13.405
	pref := &models.UserPreference{
		UserID:         "u1",
		Interests:      []string{"technology", "music"},
		Latitude:       &lat,
		Longitude:      &lng,
		RadiusKm:       10,
		PreferredDays:  []string{"saturday"},
		PreferredTimes: []string{"evening"},
		UpdatedAt:      time.Now(),
	}
	if err := db.UpsertPreference(ctx, pref); err != nil {
		t.Fatalf("UpsertPreference() error = %v", err)
	}

	got, err := db.Preference(ctx, "u1")
	if err != nil {
		t.Fatalf("Preference() error = %v", err)
	}
	if len(got.Interests) != 2 || got.Interests[0] != "technology" {
		t.Errorf("Interests = %v", got.Interests)
	}
	if got.Latitude == nil || *got.Latitude != lat {
		t.Errorf("Latitude = %v", got.Latitude)
	}
	if got.RadiusKm != 10 {
		t.Errorf("RadiusKm = %v", got.RadiusKm)
	}

	// Upsert replaces.
	pref.Interests = []string{"art"}
	if err := db.UpsertPreference(ctx, pref); err != nil {
		t.Fatal(err)
	}
	got, err = db.Preference(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Interests) != 1 || got.Interests[0] != "art" {
		t.Errorf("Interests after upsert = %v", got.Interests)
	}
}

func TestPreference_NotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.Preference(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestInteractions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	rows := []*models.UserInteraction{
		{UserID: "u1", EventID: "e1", Type: models.InteractionBookmark, Metadata: map[string]string{"feedback": "like"}},
		{UserID: "u1", EventID: "e2", Type: models.InteractionView},
		{UserID: "u2", EventID: "e1", Type: models.InteractionRSVP},
	}
	for _, in := range rows {
		if err := db.InsertInteraction(ctx, in); err != nil {
			t.Fatalf("InsertInteraction() error = %v", err)
		}
		if in.ID == "" {
			t.Fatal("InsertInteraction did not assign an id")
		}
	}

	byUser, err := db.InteractionsByUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byUser) != 2 {
		t.Errorf("u1 has %d interactions, want 2", len(byUser))
	}

	forEvents, err := db.InteractionsForEvents(ctx, []string{"e1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(forEvents) != 2 {
		t.Errorf("e1 has %d interactions, want 2", len(forEvents))
	}

	byUsers, err := db.InteractionsByUsers(ctx, []string{"u2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byUsers) != 1 || byUsers[0].Type != models.InteractionRSVP {
		t.Errorf("u2 interactions = %+v", byUsers)
	}

	var bookmark models.UserInteraction
	for _, in := range byUser {
		if in.Type == models.InteractionBookmark {
			bookmark = in
		}
	}
	if bookmark.Metadata["feedback"] != "like" {
		t.Errorf("metadata = %v", bookmark.Metadata)
	}
}

func TestRecommendationsLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now()

	recs := []models.Recommendation{
		{UserID: "u1", EventID: "e1", Score: 0.9, Reason: "Matches your interests", Algorithm: "content-based", CreatedAt: now, ExpiresAt: now.Add(models.RecommendationTTL)},
		{UserID: "u1", EventID: "e2", Score: 0.5, Reason: "Popular nearby", Algorithm: "content-based", CreatedAt: now, ExpiresAt: now.Add(models.RecommendationTTL)},
		{UserID: "u1", EventID: "e3", Score: 0.7, Reason: "Expired", Algorithm: "content-based", CreatedAt: now.Add(-8 * 24 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)},
	}
	if err := db.UpsertRecommendations(ctx, recs); err != nil {
		t.Fatalf("UpsertRecommendations() error = %v", err)
	}

	active, err := db.ActiveRecommendations(ctx, "u1", now, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d rows, want 2 (expired excluded)", len(active))
	}
	if active[0].EventID != "e1" || active[1].EventID != "e2" {
		t.Errorf("order = [%s %s], want score-descending [e1 e2]", active[0].EventID, active[1].EventID)
	}

	// Regeneration overwrites the same (user, event) pair.
	recs[0].Score = 0.95
	if err := db.UpsertRecommendations(ctx, recs[:1]); err != nil {
		t.Fatal(err)
	}
	active, err = db.ActiveRecommendations(ctx, "u1", now, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Score != 0.95 {
		t.Errorf("top = %+v, want updated score 0.95", active)
	}

	purged, err := db.DeleteExpiredRecommendations(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Errorf("purged %d rows, want 1", purged)
	}

	if err := db.DeleteRecommendations(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	active, err = db.ActiveRecommendations(ctx, "u1", now, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("rows after delete = %d, want 0", len(active))
	}
}
