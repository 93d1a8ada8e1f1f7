// =============================================================================
// Export Converter - Value Transformations
// =============================================================================
//
// Pure helpers used by template converter tables. Every helper takes the raw
// cell value (string, number or nil) and never fails: values it cannot handle
// are returned as they came in.
//
//   CleanText          : drop HTML tags and &nbsp; entities
//   StripTagsAndBr2Nl  : decode basic entities, <br> -> newline, drop tags
//   ChangeWeight       : multiply a numeric value (unit scaling)
//   SayYes             : map "contains needle" to a yes/no flag
//
// =============================================================================

package transform

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/ginjaninja78/export-converter/internal/sheet"
)

var (
	nbspPattern = regexp.MustCompile(`&nbsp;`)
	brPattern   = regexp.MustCompile(`(?is)<br\s?/?>`)

	specialCharsDecoder = strings.NewReplacer(
		"&amp;", "&",
		"&quot;", `"`,
		"&#039;", "'",
		"&#39;", "'",
		"&lt;", "<",
		"&gt;", ">",
	)
)

// CleanText removes every HTML tag and "&nbsp;" entity from value.
// Other entities are left encoded.
func CleanText(value any) string {
	text := nbspPattern.ReplaceAllString(sheet.FormatValue(value), "")
	return StripTags(text)
}

// StripTagsAndBr2Nl decodes the basic HTML special characters, turns <br>
// variants into newlines and removes the remaining tags.
func StripTagsAndBr2Nl(value any) string {
	text := specialCharsDecoder.Replace(sheet.FormatValue(value))
	text = brPattern.ReplaceAllString(text, "\n")
	return StripTags(text)
}

// StripTags returns s with tags and comments removed. Text between tags is
// kept byte for byte, entities included.
func StripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a truncated tag; either way the text so far is the result.
			return b.String()
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}

// ChangeWeight multiplies value by factor. Empty values, non-numeric values
// and a zero factor return value unchanged.
func ChangeWeight(value any, factor float64) any {
	if IsEmpty(value) || factor == 0 {
		return value
	}

	n, ok := toFloat(value)
	if !ok {
		return value
	}
	return n * factor
}

// SayYes returns yes when the text of value contains needle, no otherwise.
func SayYes(value any, needle, yes, no string) string {
	if strings.Contains(sheet.FormatValue(value), needle) {
		return yes
	}
	return no
}

// IsEmpty reports whether value counts as empty: nil, "", "0", or a zero
// number.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == "" || v == "0"
	case float64:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	case bool:
		return !v
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
