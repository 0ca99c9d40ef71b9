package domain

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Fallback colours for categories missing from CategoryColors.
const (
	MarkerFallbackColor = "#0000ff"
	ChartFallbackColor  = "#8884d8"
)

// CategoryColors maps the police API category keys to display colours.
var CategoryColors = map[string]string{
	"anti-social-behaviour": "#6d2ddd",
	"bicycle-theft":         "#49dacf",
	"burglary":              "#d1a545",
	"criminal-damage-arson": "#f14a12",
	"drugs":                 "#232ab8",
	"other-theft":           "#38d8a7",
	"possession-of-weapons": "#4e3a20",
	"public-order":          "#a2c2cf",
	"robbery":               "#1b8a69",
	"shoplifting":           "#ea85e2",
	"theft-from-the-person": "#835ed1",
	"vehicle-crime":         "#bbd50f",
	"violent-crime":         "#bf0b0b",
	"other-crime":           "#887474",
}

// CategoryColor returns the colour for key, or fallback when the key is unknown.
func CategoryColor(key, fallback string) string {
	if c, ok := CategoryColors[key]; ok {
		return c
	}
	return fallback
}

// CategoryKeys returns the known category keys sorted alphabetically.
func CategoryKeys() []string {
	keys := make([]string, 0, len(CategoryColors))
	for k := range CategoryColors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatCategory turns "anti-social-behaviour" into "Anti social behaviour".
// Only the first hyphen-delimited segment is capitalised.
func FormatCategory(key string) string {
	words := strings.Split(key, "-")
	if r, size := utf8.DecodeRuneInString(words[0]); size > 0 {
		words[0] = string(unicode.ToUpper(r)) + words[0][size:]
	}
	return strings.Join(words, " ")
}
