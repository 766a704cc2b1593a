package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rawdah/internal/model"
)

// DefaultAladhanURL is the public Aladhan API.
const DefaultAladhanURL = "https://api.aladhan.com/v1"

// MethodUmmAlQura is the calculation method used by default.
const MethodUmmAlQura = 4

// PrayerTimesClient fetches daily timings from the Aladhan API.
type PrayerTimesClient struct {
	baseURL string
	method  int
	http    *http.Client
}

func NewPrayerTimesClient(baseURL string, method int, httpClient *http.Client) *PrayerTimesClient {
	if baseURL == "" {
		baseURL = DefaultAladhanURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PrayerTimesClient{baseURL: strings.TrimSuffix(baseURL, "/"), method: method, http: httpClient}
}

type timingsResponse struct {
	Code int `json:"code"`
	Data *struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

// FetchSchedule returns the timings of date's day at the given coordinates.
func (c *PrayerTimesClient) FetchSchedule(ctx context.Context, latitude, longitude float64, date time.Time) (*model.PrayerSchedule, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	query.Set("method", strconv.Itoa(c.method))
	endpoint := fmt.Sprintf("%s/timings/%s?%s", c.baseURL, date.Format("02-01-2006"), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build timings request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var payload timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: code %d", ErrBadStatus, payload.Code)
	}
	if payload.Data == nil || len(payload.Data.Timings) == 0 {
		return nil, fmt.Errorf("%w: no timings", ErrMalformed)
	}

	schedule := &model.PrayerSchedule{
		Date:      date.Format(model.DateLayout),
		Latitude:  latitude,
		Longitude: longitude,
	}
	for _, name := range model.ScheduleNames {
		value, ok := payload.Data.Timings[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformed, name)
		}
		schedule.Entries = append(schedule.Entries, model.ScheduleEntry{Name: name, Time: value})
	}
	return schedule, nil
}
