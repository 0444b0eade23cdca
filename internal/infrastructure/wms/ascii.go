package wms

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldASCII quita tildes y diacríticos (Bogotá → Bogota, Ñuñoa → Nunoa); el WMS solo acepta ASCII.
// Lo que no tenga equivalente ASCII se reemplaza por '?'.
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return '?'
		}
		return r
	}, strings.TrimSpace(out))
}
