package ror

import (
	"strings"
	"unicode"
)

// nameFixups replaces names that break downstream ontology tooling
// (leading quotes, backslashes).
var nameFixups = map[string]string{
	"'s-Hertogenbosch":           "Den Bosch",
	"'s Heeren Loo":              "s Heeren Loo",
	`Institut Virion\Serion`:     "Institut Virion/Serion",
	`Hematology\Oncology Clinic`: "Hematology/Oncology Clinic",
}

// FixName trims a name and applies the known fixups.
func FixName(name string) string {
	name = strings.TrimSpace(name)
	if fixed, ok := nameFixups[name]; ok {
		return fixed
	}
	return name
}

// CleanName replaces control characters and Unicode noncharacters with a
// space and collapses the resulting whitespace. It reports whether the name
// changed; names without such characters are returned untouched.
func CleanName(name string) (string, bool) {
	if strings.IndexFunc(name, unprintable) < 0 {
		return name, false
	}
	cleaned := strings.Map(func(r rune) rune {
		if unprintable(r) {
			return ' '
		}
		return r
	}, name)
	return strings.Join(strings.Fields(cleaned), " "), true
}

func unprintable(r rune) bool {
	return unicode.IsControl(r) || unicode.Is(unicode.Noncharacter_Code_Point, r)
}
