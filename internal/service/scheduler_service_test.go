package service

import (
	"testing"
	"time"
)

func TestBuildDailySpec(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"00:00", "0 0 0 * * *", false},
		{"07:30", "0 30 7 * * *", false},
		{"23:59", "0 59 23 * * *", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"noon", "", true},
		{"1:2:3", "", true},
	}
	for _, tc := range cases {
		got, err := buildDailySpec(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: expected %q, got %q (%v)", tc.in, tc.want, got, err)
		}
	}
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	if _, err := s.ScheduleInterval("poll", 5*time.Second, func() {}); err != nil {
		t.Fatalf("interval: %v", err)
	}
	if _, err := s.ScheduleDaily("rollover", "00:00", func() {}); err != nil {
		t.Fatalf("daily: %v", err)
	}
	if _, err := s.ScheduleInterval("bad", 0, func() {}); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if s.Entries() != 2 {
		t.Fatalf("expected 2 jobs, got %d", s.Entries())
	}
	s.Start()
	s.Stop()
}
