package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"rawdah/internal/model"
)

const (
	// DefaultQuranURL is the public alquran.cloud API.
	DefaultQuranURL = "https://api.alquran.cloud/v1"
	// DefaultAudioURL serves one recitation file per chapter.
	DefaultAudioURL = "https://cdn.islamic.network/quran/audio-surah/128/ar.alafasy"
)

// QuranClient reads chapters from alquran.cloud and builds recitation URLs.
type QuranClient struct {
	baseURL  string
	audioURL string
	http     *http.Client
}

func NewQuranClient(baseURL, audioURL string, httpClient *http.Client) *QuranClient {
	if baseURL == "" {
		baseURL = DefaultQuranURL
	}
	if audioURL == "" {
		audioURL = DefaultAudioURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &QuranClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		audioURL: strings.TrimSuffix(audioURL, "/"),
		http:     httpClient,
	}
}

type envelope[T any] struct {
	Code int `json:"code"`
	Data *T  `json:"data"`
}

// ListSurahs returns the chapter index in order.
func (c *QuranClient) ListSurahs(ctx context.Context) ([]model.Surah, error) {
	var surahs []model.Surah
	if err := c.get(ctx, "/surah", &surahs); err != nil {
		return nil, err
	}
	return surahs, nil
}

// GetSurah returns a chapter with its verses.
func (c *QuranClient) GetSurah(ctx context.Context, number int) (*model.SurahDetail, error) {
	var detail model.SurahDetail
	if err := c.get(ctx, fmt.Sprintf("/surah/%d", number), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// AudioURL is the recitation file of a chapter. It does not touch the network.
func (c *QuranClient) AudioURL(number int) string {
	return fmt.Sprintf("%s/%d.mp3", c.audioURL, number)
}

func (c *QuranClient) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	payload := envelope[json.RawMessage]{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Code != http.StatusOK {
		return fmt.Errorf("%w: code %d", ErrBadStatus, payload.Code)
	}
	if payload.Data == nil {
		return fmt.Errorf("%w: empty data", ErrMalformed)
	}
	if err := json.Unmarshal(*payload.Data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
