package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// wordBreaks maps the separators commonly found in recording filenames to
// spaces before title-casing.
var wordBreaks = strings.NewReplacer("-", " ", "_", " ", ".", " ")

// TitleFromPath derives a presentable episode title from a source file
// path. Separator runs in the stem become single spaces, any remaining
// punctuation is dropped, and each word is title-cased. A path with no
// usable words yields "Untitled Episode".
func TitleFromPath(sourcePath string) string {
	stem := filepath.Base(sourcePath)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	stem = wordBreaks.Replace(stem)
	stem = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, stem)

	words := strings.Fields(stem)
	if len(words) == 0 {
		return "Untitled Episode"
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
