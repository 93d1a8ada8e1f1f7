// =============================================================================
// Export Converter - Locale / Currency Resolver
// =============================================================================
//
// Maps a language identifier (e.g. "pl_PL") to the currency code used for
// price columns of that locale. The table is static configuration and must
// carry a "default" entry that is used for any language not listed.
//
// =============================================================================

package locale

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// DefaultKey is the mandatory fallback entry of the currency table.
const DefaultKey = "default"

// ErrNoDefault is returned when a currency table lacks the "default" entry.
var ErrNoDefault = errors.New("currency table has no default entry")

// Resolver resolves currencies for languages.
type Resolver struct {
	currencies map[string]string
}

// NewResolver builds a Resolver from a language -> currency table.
// The table is copied; later changes to the argument have no effect.
func NewResolver(currencies map[string]string) (*Resolver, error) {
	if _, ok := currencies[DefaultKey]; !ok {
		return nil, ErrNoDefault
	}

	table := make(map[string]string, len(currencies))
	for lang, cur := range currencies {
		table[lang] = cur
	}

	return &Resolver{currencies: table}, nil
}

// DetectCurrency returns the currency configured for language, or the
// default currency when the language is not in the table.
func (r *Resolver) DetectCurrency(lang string) string {
	if cur, ok := r.currencies[lang]; ok {
		return cur
	}
	return r.currencies[DefaultKey]
}

// =============================================================================
// TAG HELPERS
// =============================================================================

// Normalize checks that id is a valid language tag, written either as
// "en_GB" or "en-GB", and returns it in the underscore form used by export
// column names. Only the separator changes: scripts, letter case and
// deprecated codes are kept as written ("zh-Hant-TW" -> "zh_Hant_TW",
// "iw" stays "iw").
func Normalize(id string) (string, error) {
	if _, err := language.Parse(id); err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", id, err)
	}
	return strings.ReplaceAll(id, "-", "_"), nil
}

// Language returns the bare language part of a locale identifier
// ("de_DE" -> "de"). Unparseable input is returned lower-cased up to the
// first separator.
func Language(id string) string {
	tag, err := language.Parse(id)
	if err != nil {
		if i := strings.IndexAny(id, "_-"); i >= 0 {
			id = id[:i]
		}
		return strings.ToLower(id)
	}
	base, _ := tag.Base()
	return base.String()
}
