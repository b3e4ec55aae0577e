// Package streak maintains per-user consecutive-activity counters and the
// activity log backing them.
package streak

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/alumninet/chatserver/internal/database"
)

const (
	ActivityLogin       = "login"
	ActivityMessageSent = "message_sent"
)

type Tracker struct {
	log *log.Logger
	db  database.AlumniRepository
}

func NewTracker(logger *log.Logger, db database.AlumniRepository) *Tracker {
	return &Tracker{
		log: logger,
		db:  db,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Advance applies one activity date to a streak record and reports whether
// the record changed. Same-day activity is a no-op; the day after the last
// recorded activity extends the streak; any other date, including one
// before the last recorded activity, resets it.
func Advance(s database.UserStreak, activityDate time.Time) (database.UserStreak, bool) {
	switch {
	case s.LastActivityDate == nil:
		s.CurrentStreak = 1
		start := activityDate
		s.StreakStartDate = &start
	case sameDay(activityDate, *s.LastActivityDate):
		return s, false
	case sameDay(activityDate, s.LastActivityDate.AddDate(0, 0, 1)):
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
		start := activityDate
		s.StreakStartDate = &start
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}

	last := activityDate
	s.LastActivityDate = &last

	return s, true
}

// UpdateStreak advances the user's streak record for the given activity
// date and persists it.
func (t *Tracker) UpdateStreak(userId int, activityDate time.Time) (database.UserStreak, error) {
	s, err := t.db.GetUserStreak(userId)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return database.UserStreak{}, fmt.Errorf("get streak: %w", err)
		}
		s = database.UserStreak{UserId: userId}
	}

	updated, changed := Advance(s, activityDate)
	if !changed {
		return s, nil
	}

	saved, err := t.db.SaveUserStreak(updated)
	if err != nil {
		return database.UserStreak{}, fmt.Errorf("save streak: %w", err)
	}

	return saved, nil
}

// RecordActivity updates the streak for today and appends an activity log
// entry. The log is informational only, the streak is never recomputed
// from it.
func (t *Tracker) RecordActivity(userId int, activityType, description string, metadata map[string]any) {
	if _, err := t.UpdateStreak(userId, time.Now().UTC()); err != nil {
		t.log.Printf("update streak for user %d: %v", userId, err)
	}

	if err := t.db.CreateActivityLog(database.ActivityLog{
		UserId:       userId,
		ActivityType: activityType,
		Description:  description,
		Metadata:     metadata,
	}); err != nil {
		t.log.Printf("log activity for user %d: %v", userId, err)
	}
}
