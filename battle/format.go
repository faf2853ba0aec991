package battle

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatName turns an api name like "thunder-shock" into "Thunder Shock".
func FormatName(name string) string {
	// Casers keep state, so one per call
	caser := cases.Title(language.English)
	return caser.String(strings.Join(strings.Split(name, "-"), " "))
}

// FormatTypes renders types like "Grass/Poison".
func FormatTypes(types []string) string {
	if len(types) == 0 {
		return "Unknown"
	}
	return strings.Join(lo.Map(types, func(t string, _ int) string {
		return FormatName(t)
	}), "/")
}
