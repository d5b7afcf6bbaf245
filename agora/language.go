package agora

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
)

//go:embed lang/*.json
var languageFS embed.FS

// Language wraps one locale's translation table. Missing keys
// translate to themselves, so an incomplete locale degrades to key
// names instead of failing.
type Language struct {
	Name         string
	translations map[string]string
}

// Translate looks up key and substitutes positional arguments written
// as $0, $1, ... in the translation string.
func (l *Language) Translate(key string, args ...string) string {
	translation, ok := l.translations[key]
	if !ok {
		return key
	}
	for i, arg := range args {
		translation = strings.ReplaceAll(translation, fmt.Sprintf("$%d", i), arg)
	}
	return translation
}

var (
	languageOnce sync.Once
	languages    map[string]*Language
)

func loadLanguages(logger *slog.Logger) map[string]*Language {
	languageOnce.Do(
		func() {
			languages = map[string]*Language{}
			entries, err := fs.Glob(languageFS, "lang/*.json")
			if err != nil {
				logger.Error("error listing embedded locales", tint.Err(err))
				return
			}
			for _, path := range entries {
				name := strings.TrimSuffix(strings.TrimPrefix(path, "lang/"), ".json")
				data, readErr := languageFS.ReadFile(path)
				if readErr != nil {
					logger.Error(
						"error reading embedded locale",
						slog.String("locale", name),
						tint.Err(readErr),
					)
					continue
				}
				translations := map[string]string{}
				if err := json.Unmarshal(data, &translations); err != nil {
					logger.Error(
						"corrupt embedded locale",
						slog.String("locale", name),
						tint.Err(err),
					)
					continue
				}
				languages[name] = &Language{Name: name, translations: translations}
			}
		},
	)
	return languages
}

// LanguageByName returns the named locale, falling back to the
// default locale for unknown names.
func LanguageByName(name string, logger *slog.Logger) *Language {
	langs := loadLanguages(logger)
	if lang, ok := langs[name]; ok {
		return lang
	}
	if lang, ok := langs[DefaultLanguage]; ok {
		return lang
	}
	// no locales embedded at all - translate keys to themselves
	return &Language{Name: name, translations: map[string]string{}}
}

// AvailableLanguages lists embedded locale names, sorted.
func AvailableLanguages(logger *slog.Logger) []string {
	langs := loadLanguages(logger)
	names := make([]string, 0, len(langs))
	for name := range langs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
