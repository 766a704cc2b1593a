package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
)

// Basmala opens every chapter but the ninth.
const Basmala = "بِسْمِ ٱللَّهِ ٱلرَّحْمَٰنِ ٱلرَّحِيمِ"

const recitationOwner = "quran"

// ScriptureSource provides chapter text and recitation URLs.
type ScriptureSource interface {
	ListSurahs(ctx context.Context) ([]model.Surah, error)
	GetSurah(ctx context.Context, number int) (*model.SurahDetail, error)
	AudioURL(number int) string
}

// QuranService browses chapters and controls their recitation. The chapter
// index is fetched once; chapter text is fetched on every open.
type QuranService struct {
	source ScriptureSource
	player SoundPlayer
	slot   *AudioSlot

	mu       sync.Mutex
	chapters []model.Surah
	open     *model.SurahDetail
}

func NewQuranService(source ScriptureSource, player SoundPlayer, slot *AudioSlot) *QuranService {
	if slot == nil {
		slot = NewAudioSlot()
	}
	return &QuranService{source: source, player: player, slot: slot}
}

// ListChapters returns the chapter index. Failures are not cached.
func (s *QuranService) ListChapters(ctx context.Context) ([]model.Surah, error) {
	s.mu.Lock()
	cached := s.chapters
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	chapters, err := s.source.ListSurahs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}

	s.mu.Lock()
	if s.chapters == nil {
		s.chapters = chapters
	}
	cached = s.chapters
	s.mu.Unlock()
	return cached, nil
}

// Search filters the chapter index by query.
func (s *QuranService) Search(ctx context.Context, query string) ([]model.Surah, error) {
	chapters, err := s.ListChapters(ctx)
	if err != nil {
		return nil, err
	}
	return FilterChapters(chapters, query), nil
}

// FilterChapters keeps chapters whose native name, transliterated name
// (ignoring case) or number contains query.
func FilterChapters(chapters []model.Surah, query string) []model.Surah {
	query = strings.TrimSpace(query)
	if query == "" {
		return chapters
	}
	lower := strings.ToLower(query)
	var out []model.Surah
	for _, ch := range chapters {
		if strings.Contains(ch.Name, query) ||
			strings.Contains(strings.ToLower(ch.EnglishName), lower) ||
			strings.Contains(strconv.Itoa(ch.Number), query) {
			out = append(out, ch)
		}
	}
	return out
}

// Chapter fetches a chapter without touching the open chapter or its
// recitation.
func (s *QuranService) Chapter(ctx context.Context, number int) (*model.SurahDetail, error) {
	if number < 1 || number > model.MaxSurah {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchChapter, number)
	}
	detail, err := s.source.GetSurah(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("fetch chapter %d: %w", number, err)
	}
	return detail, nil
}

// OpenChapter stops the current recitation and fetches the chapter.
func (s *QuranService) OpenChapter(ctx context.Context, number int) (*model.SurahDetail, error) {
	if number < 1 || number > model.MaxSurah {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchChapter, number)
	}
	if err := s.slot.StopOwner(ctx, recitationOwner); err != nil {
		log.Warn().Err(err).Msg("stop recitation failed")
	}

	detail, err := s.source.GetSurah(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("open chapter %d: %w", number, err)
	}

	s.mu.Lock()
	s.open = detail
	s.mu.Unlock()
	return detail, nil
}

// Current returns the open chapter.
func (s *QuranService) Current() (*model.SurahDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open, s.open != nil
}

// Close stops the recitation and forgets the open chapter.
func (s *QuranService) Close(ctx context.Context) {
	if err := s.slot.StopOwner(ctx, recitationOwner); err != nil {
		log.Warn().Err(err).Msg("stop recitation failed")
	}
	s.mu.Lock()
	s.open = nil
	s.mu.Unlock()
}

func (s *QuranService) AudioURL(number int) string {
	return s.source.AudioURL(number)
}

// Playing reports whether the recitation holds the audio slot.
func (s *QuranService) Playing() bool {
	owner, ok := s.slot.Owner()
	return ok && owner == recitationOwner
}

// ToggleRecitation starts or stops the recitation of the open chapter and
// returns whether it is now playing.
func (s *QuranService) ToggleRecitation(ctx context.Context) (bool, error) {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	if open == nil {
		return false, fmt.Errorf("%w: no chapter open", ErrNoSuchChapter)
	}

	if s.Playing() {
		if err := s.slot.StopOwner(ctx, recitationOwner); err != nil {
			return false, fmt.Errorf("stop recitation: %w", err)
		}
		return false, nil
	}
	if s.player == nil {
		return false, fmt.Errorf("play recitation: no player")
	}

	url := s.source.AudioURL(open.Number)
	err := s.slot.Play(ctx, recitationOwner, func(ctx context.Context) (AudioHandle, error) {
		return s.player.PlaySound(ctx, url)
	})
	if err != nil {
		return s.Playing(), fmt.Errorf("play recitation: %w", err)
	}
	return true, nil
}

// HasBasmalaHeader reports whether the chapter is shown under a basmala.
func HasBasmalaHeader(number int) bool {
	return number != 1 && number != 9
}

// VerseText returns the verse for display, without the basmala the source
// prefixes to the first verse of most chapters.
func VerseText(chapter int, ayah model.Ayah) string {
	text := strings.TrimSpace(ayah.Text)
	if chapter == 1 || ayah.NumberInSurah != 1 {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(text, Basmala))
}
