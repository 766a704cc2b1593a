package model

import "strings"

// ScheduleEntry is one named time of day as returned by the prayer-time source,
// e.g. {"Fajr", "05:30 (EEST)"}.
type ScheduleEntry struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

// PrayerSchedule holds the timings of one day at one location.
// Entries keep the source order.
type PrayerSchedule struct {
	Date      string          `json:"date"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Entries   []ScheduleEntry `json:"entries"`
}

// ScheduleNames are the timings kept from the source, in order of the day.
var ScheduleNames = []string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

// PrayerKey maps an entry name to its prayer. Sunrise and unknown names
// report false.
func (e ScheduleEntry) PrayerKey() (PrayerKey, bool) {
	key := PrayerKey(strings.ToLower(strings.TrimSpace(e.Name)))
	if !key.Valid() {
		return "", false
	}
	return key, true
}

// Clock returns the HH:MM part of the time with any annotation removed.
func (e ScheduleEntry) Clock() string {
	return StripAnnotation(e.Time)
}

// StripAnnotation removes a trailing timezone annotation such as " (EEST)".
func StripAnnotation(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, ' '); i >= 0 {
		value = value[:i]
	}
	return value
}

// TimeOf returns the clock time for a prayer, if present.
func (s PrayerSchedule) TimeOf(key PrayerKey) (string, bool) {
	for _, entry := range s.Entries {
		if k, ok := entry.PrayerKey(); ok && k == key {
			return entry.Clock(), true
		}
	}
	return "", false
}
