package model

// Surah is the metadata of a chapter.
type Surah struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"englishName"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
	RevelationType         string `json:"revelationType"`
}

// Ayah is a verse of a chapter.
type Ayah struct {
	Number        int    `json:"number"`
	Text          string `json:"text"`
	NumberInSurah int    `json:"numberInSurah"`
	Juz           int    `json:"juz"`
}

// SurahDetail is a chapter with its verses.
type SurahDetail struct {
	Surah
	Ayahs []Ayah `json:"ayahs"`
}

// MaxSurah is the number of chapters.
const MaxSurah = 114
