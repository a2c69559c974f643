package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	reminderTimeLayout = "15:04:05"
	dateLayout         = "2006-01-02"
	daysPerYear        = 365
)

// ReminderTime is a time of day without a date.
type ReminderTime struct {
	Hour, Minute, Second int
}

// ParseReminderTime accepts HH:MM:SS in 24 hour format.
func ParseReminderTime(raw string) (ReminderTime, error) {
	text := strings.TrimSpace(raw)
	t, err := time.Parse(reminderTimeLayout, text)
	if err != nil {
		return ReminderTime{}, &ValidationError{Input: text, Err: ErrInvalidTime}
	}
	return ReminderTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func (t ReminderTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// CronSpec returns a six-field (seconds first) daily cron expression.
func (t ReminderTime) CronSpec() string {
	return fmt.Sprintf("%d %d %d * * *", t.Second, t.Minute, t.Hour)
}

// ParseYearlyFrequency converts "contacts per year" into days between contacts.
func ParseYearlyFrequency(raw string) (int, error) {
	text := strings.TrimSpace(raw)
	count, err := strconv.Atoi(text)
	if err != nil || count <= 0 {
		return 0, &ValidationError{Input: text, Err: ErrInvalidFrequency}
	}
	return IntervalFromFrequency(count), nil
}

// IntervalFromFrequency rounds 365/count to whole days, never below one.
func IntervalFromFrequency(count int) int {
	days := int(math.Round(float64(daysPerYear) / float64(count)))
	if days < 1 {
		return 1
	}
	return days
}

// ParseDate accepts YYYY-MM-DD and returns the calendar date at midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	text := strings.TrimSpace(raw)
	t, err := time.Parse(dateLayout, text)
	if err != nil {
		return time.Time{}, &ValidationError{Input: text, Err: ErrInvalidDate}
	}
	return DateOf(t), nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
