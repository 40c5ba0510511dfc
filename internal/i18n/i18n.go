// Package i18n resolves localized user-facing strings by dotted key path,
// e.g. T("errors.dbError", "ar"). Unknown languages fall back to English;
// unknown keys fall back to the key itself so a missing translation is
// visible rather than fatal.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"lisanchat/internal/models"
)

//go:embed locales/*.json
var localeFS embed.FS

var translations = map[string]map[string]string{}

func init() {
	for _, lang := range []string{models.LanguageEnglish, models.LanguageArabic} {
		data, err := localeFS.ReadFile("locales/" + lang + ".json")
		if err != nil {
			panic(fmt.Sprintf("i18n: read locale %s: %v", lang, err))
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(data, &nested); err != nil {
			panic(fmt.Sprintf("i18n: decode locale %s: %v", lang, err))
		}
		flat := make(map[string]string)
		for section, raw := range nested {
			var entries map[string]string
			if err := json.Unmarshal(raw, &entries); err != nil {
				panic(fmt.Sprintf("i18n: decode locale %s section %s: %v", lang, section, err))
			}
			for key, value := range entries {
				flat[section+"."+key] = value
			}
		}
		translations[lang] = flat
	}
}

// T returns the localized string for key in lang.
func T(key, lang string) string {
	lang = strings.TrimSpace(lang)
	table, ok := translations[lang]
	if !ok {
		table = translations[models.LanguageEnglish]
	}
	if msg, ok := table[key]; ok {
		return msg
	}
	if lang != models.LanguageEnglish {
		if msg, ok := translations[models.LanguageEnglish][key]; ok {
			return msg
		}
	}
	return key
}
