// Package i18n holds the UI message catalogue.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// DefaultLang is the language of the bundled catalogue.
const DefaultLang = "ar"

// Translator looks up messages in one language, falling back to the default
// language and then to the key itself.
type Translator struct {
	locales     map[string]map[string]string
	lang        string
	defaultLang string
}

// NewTranslator loads every *.yaml file of fsys. Each file is named after its
// language (ar.yaml, en.yaml) and holds flat key/value pairs.
func NewTranslator(fsys fs.FS, lang, defaultLang string) (*Translator, error) {
	t := &Translator{
		locales:     make(map[string]map[string]string),
		lang:        lang,
		defaultLang: defaultLang,
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read locale %s: %w", p, err)
		}
		kv := make(map[string]string)
		if err := yaml.Unmarshal(data, &kv); err != nil {
			return fmt.Errorf("parse locale %s: %w", p, err)
		}
		t.locales[strings.TrimSuffix(path.Base(p), ".yaml")] = kv
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, ok := t.locales[defaultLang]; !ok {
		t.locales[defaultLang] = make(map[string]string)
	}
	return t, nil
}

// New returns a translator over the bundled catalogue.
func New(lang string) (*Translator, error) {
	if lang == "" {
		lang = DefaultLang
	}
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, fmt.Errorf("open bundled locales: %w", err)
	}
	tr, err := NewTranslator(sub, lang, DefaultLang)
	if err != nil {
		return nil, err
	}
	log.Debug().Strs("locales", tr.Available()).Str("lang", lang).Msg("translations loaded")
	if !tr.Has(lang) {
		log.Warn().Str("lang", lang).Msg("no catalogue for language, using default")
	}
	return tr, nil
}

// Has reports whether a catalogue for lang was loaded.
func (t *Translator) Has(lang string) bool {
	_, ok := t.locales[lang]
	return ok
}

// T returns the message for key.
func (t *Translator) T(key string) string {
	if val, ok := t.locales[t.lang][key]; ok {
		return val
	}
	if val, ok := t.locales[t.defaultLang][key]; ok {
		return val
	}
	return key
}

// Tf formats the message for key with args.
func (t *Translator) Tf(key string, args ...any) string {
	return fmt.Sprintf(t.T(key), args...)
}

// Available returns loaded language codes.
func (t *Translator) Available() []string {
	keys := make([]string, 0, len(t.locales))
	for k := range t.locales {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
