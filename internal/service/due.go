package service

import (
	"time"

	"contact-reminder/internal/model"
)

// DateOf strips the clock from t, keeping its calendar date as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsDue reports whether lastContact + intervalDays is on or before today.
func IsDue(intervalDays int, lastContact, today time.Time) bool {
	due := DateOf(lastContact).AddDate(0, 0, intervalDays)
	return !due.After(DateOf(today))
}

// NextDue returns the date the contact becomes due.
func NextDue(c model.Contact) time.Time {
	return DateOf(c.LastContactDate).AddDate(0, 0, c.IntervalDays)
}

// DueContacts keeps the contacts that are due today, in input order.
func DueContacts(contacts []model.Contact, today time.Time) []model.Contact {
	var due []model.Contact
	for _, c := range contacts {
		if IsDue(c.IntervalDays, c.LastContactDate, today) {
			due = append(due, c)
		}
	}
	return due
}
