// =============================================================================
// Export Converter - Transformation Actions
// =============================================================================
//
// Actions are the building blocks of declarative templates. A column lists
// actions in order; each receives the output of the previous one.
//
// SUPPORTED ACTIONS:
//   String manipulations : prepend_string, append_string, trim, uppercase,
//                          lowercase, replace, regex_replace,
//                          normalize_whitespace
//   Numeric formatting   : pad_zeros_to_length, ensure_length, format_number,
//                          change_weight
//   Lookups              : lookup, lookup_with_default
//   Empty handling       : if_empty_use_default, if_empty_use_field
//   Export cleaning      : clean_text, strip_tags_br2nl, say_yes
//
// "select_attribute" is not handled here: it needs the attribute translation
// service and is resolved by the template before ApplyAction is reached.
//
// =============================================================================

package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/export-converter/internal/sheet"
)

// SelectAttribute is the action type that translates option codes.
const SelectAttribute = "select_attribute"

// Action is one configured transformation step.
type Action struct {
	// Type selects the transformation, see the list above.
	Type string `yaml:"type" toml:"type"`

	// Value is the main parameter: the string to add, the target length, the
	// factor, the "yes" label, the default, or the replacement.
	Value string `yaml:"value,omitempty" toml:"value,omitempty"`

	// Find is the substring, pattern or needle to look for.
	Find string `yaml:"find,omitempty" toml:"find,omitempty"`

	// Else is the "no" label of say_yes.
	Else string `yaml:"else,omitempty" toml:"else,omitempty"`

	// LookupTable maps input values to output values.
	LookupTable map[string]string `yaml:"lookup_table,omitempty" toml:"lookup_table,omitempty"`
}

// Fields gives actions read access to other columns of the source row.
type Fields func(column string) (any, bool)

// ApplyAction applies one action to value.
func ApplyAction(value any, action Action, fields Fields) (any, error) {
	switch action.Type {

	// =========================================================================
	// EXPORT CLEANING
	// =========================================================================

	case "clean_text":
		return CleanText(value), nil

	case "strip_tags_br2nl":
		return StripTagsAndBr2Nl(value), nil

	case "change_weight":
		factor, err := strconv.ParseFloat(action.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("change_weight: invalid factor %q", action.Value)
		}
		return ChangeWeight(value, factor), nil

	case "say_yes":
		return SayYes(value, action.Find, action.Value, action.Else), nil

	// =========================================================================
	// EMPTY HANDLING
	// =========================================================================

	case "if_empty_use_default":
		if strings.TrimSpace(sheet.FormatValue(value)) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(sheet.FormatValue(value)) == "" && fields != nil {
			if other, ok := fields(action.Value); ok {
				return other, nil
			}
		}
		return value, nil
	}

	// Everything below works on text; nil stays nil.
	if value == nil {
		return nil, nil
	}
	text := sheet.FormatValue(value)

	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		return action.Value + text, nil

	case "append_string":
		return text + action.Value, nil

	case "trim":
		return strings.TrimSpace(text), nil

	case "uppercase":
		return strings.ToUpper(text), nil

	case "lowercase":
		return strings.ToLower(text), nil

	case "replace":
		if action.Find == "" {
			return text, nil
		}
		return strings.ReplaceAll(text, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return text, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(text, action.Value), nil

	case "normalize_whitespace":
		return strings.Join(strings.Fields(text), " "), nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		targetLength, err := strconv.Atoi(action.Value)
		if err != nil || targetLength <= 0 {
			return text, nil
		}
		return PadLeft(text, targetLength, '0'), nil

	case "ensure_length":
		targetLength, err := strconv.Atoi(action.Value)
		if err != nil || targetLength <= 0 {
			return text, nil
		}
		if runes := []rune(text); len(runes) > targetLength {
			return string(runes[:targetLength]), nil
		}
		return PadLeft(text, targetLength, '0'), nil

	case "format_number":
		decimalPlaces, err := strconv.Atoi(action.Value)
		if err != nil || decimalPlaces < 0 {
			return text, nil
		}
		num, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return text, nil
		}
		return strconv.FormatFloat(num, 'f', decimalPlaces, 64), nil

	// =========================================================================
	// LOOKUPS
	// =========================================================================

	case "lookup":
		if replacement, ok := action.LookupTable[text]; ok {
			return replacement, nil
		}
		return text, nil

	case "lookup_with_default":
		if replacement, ok := action.LookupTable[text]; ok {
			return replacement, nil
		}
		return action.Value, nil

	default:
		return nil, fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// ApplyActions runs actions in order.
func ApplyActions(value any, actions []Action, fields Fields) (any, error) {
	result := value
	for _, action := range actions {
		var err error
		result, err = ApplyAction(result, action, fields)
		if err != nil {
			return nil, fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
		}
	}
	return result, nil
}

// Known reports whether ApplyAction understands the action type.
func Known(actionType string) bool {
	switch actionType {
	case "clean_text", "strip_tags_br2nl", "change_weight", "say_yes",
		"if_empty_use_default", "if_empty_use_field",
		"prepend_string", "append_string", "trim", "uppercase", "lowercase",
		"replace", "regex_replace", "normalize_whitespace",
		"pad_zeros_to_length", "ensure_length", "format_number",
		"lookup", "lookup_with_default":
		return true
	}
	return false
}

// PadLeft pads s on the left with padChar up to length characters.
func PadLeft(s string, length int, padChar rune) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
