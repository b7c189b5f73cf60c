package money

import (
	"os"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// localeEnv lists the variables consulted for the user's locale, most specific first.
var localeEnv = []string{"LC_MONETARY", "LC_ALL", "LANG"}

// osLocale asks the operating system when no variable names a locale.
var osLocale = platformLocale

func systemLocale() string {
	for _, name := range localeEnv {
		if v := os.Getenv(name); v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}
	return osLocale()
}

// DetectSystemCurrency returns the currency of the user's locale region along
// with the locale itself, or "" and language.Und when neither can be told.
func DetectSystemCurrency() (string, language.Tag) {
	return regionCurrency(systemLocale())
}

// ParseLocale parses a POSIX ("sv_SE.UTF-8", "de_DE@euro") or BCP 47 ("sv-SE")
// locale name.
func ParseLocale(locale string) (language.Tag, error) {
	name, _, _ := strings.Cut(locale, ".")
	name, _, _ = strings.Cut(name, "@")
	return language.Parse(strings.Replace(name, "_", "-", 1))
}

// regionCurrency maps "pt_BR.UTF-8" to BRL and pt-BR. Locales without a
// region map to nothing.
func regionCurrency(locale string) (string, language.Tag) {
	if locale == "" {
		return "", language.Und
	}
	tag, err := ParseLocale(locale)
	if err != nil {
		return "", language.Und
	}
	region, conf := tag.Region()
	if conf != language.Exact || region.String() == "ZZ" {
		return "", language.Und
	}
	unit, ok := currency.FromRegion(region)
	if !ok {
		return "", language.Und
	}
	return unit.String(), tag
}
