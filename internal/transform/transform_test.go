package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"plain", "Face cream", "Face cream"},
		{"tags", "<p>Face <strong>cream</strong></p>", "Face cream"},
		{"nbsp", "50&nbsp;ml", "50ml"},
		{"entities kept", "Tom &amp; Jerry", "Tom &amp; Jerry"},
		{"comment", "a<!-- hidden -->b", "ab"},
		{"number", 12.5, "12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestStripTagsAndBr2Nl(t *testing.T) {
	assert.Equal(t, "line one\nline two\nthree", StripTagsAndBr2Nl("line one<br>line two<BR />three"))
	assert.Equal(t, "bold & brave", StripTagsAndBr2Nl("&lt;b&gt;bold&lt;/b&gt; &amp; brave"))
	assert.Equal(t, "", StripTagsAndBr2Nl(nil))
}

func TestChangeWeight(t *testing.T) {
	assert.Equal(t, 0.25, ChangeWeight("250", 0.001))
	assert.Equal(t, 3000.0, ChangeWeight(3.0, 1000))
	assert.Equal(t, "", ChangeWeight("", 1000))
	assert.Nil(t, ChangeWeight(nil, 1000))
	assert.Equal(t, "0", ChangeWeight("0", 1000))
	assert.Equal(t, "12", ChangeWeight("12", 0))
	assert.Equal(t, "heavy", ChangeWeight("heavy", 2))
}

func TestSayYes(t *testing.T) {
	assert.Equal(t, "Yes", SayYes("vegan,cruelty_free", "vegan", "Yes", "No"))
	assert.Equal(t, "No", SayYes("cruelty_free", "vegan", "Yes", "No"))
	assert.Equal(t, "", SayYes(nil, "vegan", "Yes", ""))
}

func TestApplyAction(t *testing.T) {
	row := map[string]any{"name": "Lamp"}
	fields := func(column string) (any, bool) {
		v, ok := row[column]
		return v, ok
	}

	tests := []struct {
		name   string
		value  any
		action Action
		want   any
	}{
		{"prepend", "123", Action{Type: "prepend_string", Value: "A"}, "A123"},
		{"append", "123", Action{Type: "append_string", Value: "-00"}, "123-00"},
		{"trim", "  x ", Action{Type: "trim"}, "x"},
		{"upper", "abc", Action{Type: "uppercase"}, "ABC"},
		{"lower", "ABC", Action{Type: "lowercase"}, "abc"},
		{"replace", "a-b", Action{Type: "replace", Find: "-", Value: "_"}, "a_b"},
		{"regex", "ABC-123", Action{Type: "regex_replace", Find: "[A-Z]+", Value: "X"}, "X-123"},
		{"whitespace", " a   b ", Action{Type: "normalize_whitespace"}, "a b"},
		{"pad", "123", Action{Type: "pad_zeros_to_length", Value: "6"}, "000123"},
		{"ensure truncates", "123456", Action{Type: "ensure_length", Value: "3"}, "123"},
		{"ensure truncates on characters", "aŻb", Action{Type: "ensure_length", Value: "2"}, "aŻ"},
		{"ensure pads multibyte", "Żó", Action{Type: "ensure_length", Value: "3"}, "0Żó"},
		{"pad multibyte", "Żó", Action{Type: "pad_zeros_to_length", Value: "4"}, "00Żó"},
		{"format number", "1234.5", Action{Type: "format_number", Value: "2"}, "1234.50"},
		{"lookup hit", "01", Action{Type: "lookup", LookupTable: map[string]string{"01": "Jan"}}, "Jan"},
		{"lookup miss", "02", Action{Type: "lookup", LookupTable: map[string]string{"01": "Jan"}}, "02"},
		{"lookup default", "02", Action{Type: "lookup_with_default", Value: "?", LookupTable: map[string]string{}}, "?"},
		{"empty default", nil, Action{Type: "if_empty_use_default", Value: "N/A"}, "N/A"},
		{"empty field", "", Action{Type: "if_empty_use_field", Value: "name"}, "Lamp"},
		{"nil passes string actions", nil, Action{Type: "uppercase"}, nil},
		{"clean", "<b>x</b>", Action{Type: "clean_text"}, "x"},
		{"weight", "500", Action{Type: "change_weight", Value: "0.001"}, 0.5},
		{"say yes", "bio", Action{Type: "say_yes", Find: "bio", Value: "1", Else: "0"}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyAction(tt.value, tt.action, fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, Known(tt.action.Type))
		})
	}
}

func TestApplyAction_Errors(t *testing.T) {
	_, err := ApplyAction("x", Action{Type: "explode"}, nil)
	assert.Error(t, err)
	assert.False(t, Known("explode"))

	_, err = ApplyAction("x", Action{Type: "regex_replace", Find: "("}, nil)
	assert.Error(t, err)

	_, err = ApplyAction("1", Action{Type: "change_weight", Value: "heavy"}, nil)
	assert.Error(t, err)
}

func TestApplyActions_Chain(t *testing.T) {
	got, err := ApplyActions(" <p>abc</p> ", []Action{
		{Type: "clean_text"},
		{Type: "trim"},
		{Type: "uppercase"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)

	_, err = ApplyActions("x", []Action{{Type: "trim"}, {Type: "nope"}}, nil)
	assert.ErrorContains(t, err, "transformation 'nope' failed")
}
