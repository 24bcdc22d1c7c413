// Conventus - Multi-Platform Event Aggregation and Personalized Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/conventus

package recommend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/conventus/internal/models"
)

// Content-based scoring weights. The four sub-scores each live in [0,1];
// the weighted sum therefore does too.
const (
	weightInterest = 0.4
	weightDistance = 0.3
	weightDayTime  = 0.2
	weightLeadTime = 0.1
)

// inclusionFloor drops candidates with effectively no signal.
const inclusionFloor = 0.1

// defaultRadiusKm applies when the user has coordinates but no stated
// radius.
const defaultRadiusKm = 25.0

// neutralScore is the sub-score used when a signal has no data to work
// with. Absence of data degrades the signal, it never aborts scoring.
const neutralScore = 0.5

// scoreContent scores candidates against one user's stated preferences,
// returning survivors of the inclusion floor sorted descending. Ties keep
// candidate order.
func scoreContent(events []models.Event, pref *models.UserPreference, now time.Time) []scored {
	out := make([]scored, 0, len(events))

	for i := range events {
		ev := &events[i]

		interest, matched := interestScore(ev, pref)
		distance := distanceScore(ev, pref)
		dayTime := dayTimeScore(ev, pref)
		leadTime := leadTimeScore(ev.StartTime, now)

		total := weightInterest*interest +
			weightDistance*distance +
			weightDayTime*dayTime +
			weightLeadTime*leadTime
		if total <= inclusionFloor {
			continue
		}

		out = append(out, scored{
			EventID:   ev.ID,
			Score:     total,
			Reason:    contentReason(matched, distance, dayTime, leadTime),
			Algorithm: AlgorithmContent,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// interestScore computes the interest-match sub-score and returns the
// matched interest tokens for the reason text. Tag and category matches
// count independently.
func interestScore(ev *models.Event, pref *models.UserPreference) (float64, []string) {
	if pref == nil || len(pref.Interests) == 0 {
		return neutralScore, nil
	}

	score := 0.3
	var matched []string
	for _, interest := range pref.Interests {
		hit := false
		for _, tag := range ev.Tags {
			if strings.EqualFold(tag, interest) {
				score += 0.35
				hit = true
				break
			}
		}
		if strings.EqualFold(ev.Category, interest) {
			score += 0.35
			hit = true
		}
		if hit {
			matched = append(matched, interest)
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, matched
}

// distanceScore tiers the great-circle distance against the user's
// preferred radius. Events without coordinates score neutral regardless of
// user location, as do users without coordinates.
func distanceScore(ev *models.Event, pref *models.UserPreference) float64 {
	if ev.Location.Latitude == nil || ev.Location.Longitude == nil {
		return neutralScore
	}
	if pref == nil || pref.Latitude == nil || pref.Longitude == nil {
		return neutralScore
	}

	radius := pref.RadiusKm
	if radius <= 0 {
		radius = defaultRadiusKm
	}

	distance := haversineKm(*pref.Latitude, *pref.Longitude, *ev.Location.Latitude, *ev.Location.Longitude)
	switch ratio := distance / radius; {
	case ratio <= 0.25:
		return 1.0
	case ratio <= 0.5:
		return 0.8
	case ratio <= 1.0:
		return 0.6
	case ratio <= 1.5:
		return 0.3
	default:
		return 0.1
	}
}

// dayTimeScore rates how well the event's start fits the user's preferred
// days and time-of-day buckets.
func dayTimeScore(ev *models.Event, pref *models.UserPreference) float64 {
	if pref == nil {
		return neutralScore
	}

	score := 0.5

	if len(pref.PreferredDays) > 0 {
		weekday := strings.ToLower(ev.StartTime.Weekday().String())
		matched := false
		for _, day := range pref.PreferredDays {
			if strings.EqualFold(day, weekday) {
				matched = true
				break
			}
		}
		if matched {
			score += 0.25
		} else {
			score -= 0.1
		}
	}

	hour := ev.StartTime.Hour()
	for _, bucket := range pref.PreferredTimes {
		if hourInBucket(hour, bucket) {
			score += 0.25
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}

// hourInBucket maps a start hour into named time-of-day buckets.
func hourInBucket(hour int, bucket string) bool {
	switch strings.ToLower(bucket) {
	case "morning":
		return hour >= 6 && hour < 12
	case "afternoon":
		return hour >= 12 && hour < 18
	case "evening":
		return hour >= 18 && hour < 24
	default:
		return false
	}
}

// leadTimeScore favors events coming up soon. Past events keep a token
// score rather than zero so they stay auditable in persisted rows.
func leadTimeScore(start, now time.Time) float64 {
	lead := start.Sub(now)
	switch {
	case lead < 0:
		return 0.1
	case lead <= 7*24*time.Hour:
		return 1.0
	case lead <= 14*24*time.Hour:
		return 0.8
	case lead <= 30*24*time.Hour:
		return 0.6
	default:
		return 0.4
	}
}

// contentReason builds the user-facing explanation from the strongest
// signals.
func contentReason(matched []string, distance, dayTime, leadTime float64) string {
	var parts []string
	if len(matched) > 0 {
		parts = append(parts, fmt.Sprintf("Matches your interests: %s", strings.Join(matched, ", ")))
	}
	if distance >= 0.8 {
		parts = append(parts, "Close to your location")
	}
	if dayTime > 0.5 {
		parts = append(parts, "Fits your preferred schedule")
	}
	if leadTime >= 1.0 {
		parts = append(parts, "Happening soon")
	}
	if len(parts) == 0 {
		return "Suggested for you"
	}
	return strings.Join(parts, "; ")
}
