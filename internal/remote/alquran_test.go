package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newQuranServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/surah", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":200,"data":[
			{"number":1,"name":"سُورَةُ ٱلْفَاتِحَةِ","englishName":"Al-Faatiha","englishNameTranslation":"The Opening","numberOfAyahs":7,"revelationType":"Meccan"},
			{"number":2,"name":"سُورَةُ البَقَرَةِ","englishName":"Al-Baqara","englishNameTranslation":"The Cow","numberOfAyahs":286,"revelationType":"Medinan"}]}`)
	})
	mux.HandleFunc("/surah/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":200,"data":{"number":1,"name":"سُورَةُ ٱلْفَاتِحَةِ","englishName":"Al-Faatiha","numberOfAyahs":7,
			"ayahs":[{"number":1,"text":"بِسْمِ ٱللَّهِ","numberInSurah":1,"juz":1},{"number":2,"text":"ٱلْحَمْدُ لِلَّهِ","numberInSurah":2,"juz":1}]}}`)
	})
	mux.HandleFunc("/surah/999", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":404,"data":"not found"}`)
	})
	return httptest.NewServer(mux)
}

func TestListSurahs(t *testing.T) {
	srv := newQuranServer(t)
	defer srv.Close()

	client := NewQuranClient(srv.URL, "", srv.Client())
	surahs, err := client.ListSurahs(context.Background())
	if err != nil {
		t.Fatalf("ListSurahs: %v", err)
	}
	if len(surahs) != 2 {
		t.Fatalf("expected 2 surahs, got %d", len(surahs))
	}
	if surahs[1].EnglishName != "Al-Baqara" || surahs[1].NumberOfAyahs != 286 {
		t.Fatalf("unexpected surah %+v", surahs[1])
	}
}

func TestGetSurah(t *testing.T) {
	srv := newQuranServer(t)
	defer srv.Close()

	client := NewQuranClient(srv.URL, "", srv.Client())
	detail, err := client.GetSurah(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetSurah: %v", err)
	}
	if len(detail.Ayahs) != 2 || detail.Ayahs[1].NumberInSurah != 2 {
		t.Fatalf("unexpected ayahs %+v", detail.Ayahs)
	}

	if _, err := client.GetSurah(context.Background(), 999); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
}

func TestAudioURL(t *testing.T) {
	client := NewQuranClient("", "", nil)
	want := DefaultAudioURL + "/36.mp3"
	if got := client.AudioURL(36); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	client = NewQuranClient("", "https://audio.example/", nil)
	if got := client.AudioURL(1); got != "https://audio.example/1.mp3" {
		t.Fatalf("unexpected url %q", got)
	}
}
