package model

import "time"

// DateLayout is the calendar-day key used for DailyProgress.Date.
const DateLayout = "2006-01-02"

// PrayerKey identifies one of the five daily prayers.
type PrayerKey string

const (
	Fajr    PrayerKey = "fajr"
	Dhuhr   PrayerKey = "dhuhr"
	Asr     PrayerKey = "asr"
	Maghrib PrayerKey = "maghrib"
	Isha    PrayerKey = "isha"
)

// PrayerKeys lists the prayers in the order of the day.
var PrayerKeys = []PrayerKey{Fajr, Dhuhr, Asr, Maghrib, Isha}

var prayerNames = map[PrayerKey]string{
	Fajr:    "الفجر",
	Dhuhr:   "الظهر",
	Asr:     "العصر",
	Maghrib: "المغرب",
	Isha:    "العشاء",
}

// Valid reports whether k belongs to the fixed prayer set.
func (k PrayerKey) Valid() bool {
	_, ok := prayerNames[k]
	return ok
}

// DisplayName returns the Arabic name of the prayer.
func (k PrayerKey) DisplayName() string {
	if name, ok := prayerNames[k]; ok {
		return name
	}
	return string(k)
}

// PrayerStatus tracks the two completion flags of a prayer.
type PrayerStatus struct {
	Fard   bool `json:"fard"`
	Sunnah bool `json:"sunnah"`
}

// Adhkar tracks the morning and evening remembrance.
type Adhkar struct {
	Morning bool `json:"morning"`
	Evening bool `json:"evening"`
}

// Study tracks the study tasks of the day and free-form notes.
type Study struct {
	Review  bool   `json:"review"`
	Reading bool   `json:"reading"`
	Notes   string `json:"notes"`
}

// DailyProgress is the record of one calendar day.
type DailyProgress struct {
	Date    string                     `json:"date"`
	Prayers map[PrayerKey]PrayerStatus `json:"prayers"`
	Adhkar  Adhkar                     `json:"adhkar"`
	Study   Study                      `json:"study"`
}

// NewDailyProgress returns an empty record stamped with the day of t.
func NewDailyProgress(t time.Time) DailyProgress {
	p := DailyProgress{
		Date:    t.Format(DateLayout),
		Prayers: make(map[PrayerKey]PrayerStatus, len(PrayerKeys)),
	}
	for _, key := range PrayerKeys {
		p.Prayers[key] = PrayerStatus{}
	}
	return p
}

// Normalize makes the prayer map hold exactly the fixed prayer set,
// dropping unknown keys and filling missing ones.
func (p *DailyProgress) Normalize() {
	prayers := make(map[PrayerKey]PrayerStatus, len(PrayerKeys))
	for _, key := range PrayerKeys {
		prayers[key] = p.Prayers[key]
	}
	p.Prayers = prayers
}

// Clone returns a deep copy.
func (p DailyProgress) Clone() DailyProgress {
	out := p
	out.Prayers = make(map[PrayerKey]PrayerStatus, len(p.Prayers))
	for k, v := range p.Prayers {
		out.Prayers[k] = v
	}
	return out
}
