package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInches(t *testing.T) {
	cases := map[string]string{
		`7'10"`:    "94",
		`7' 6"`:    "90",
		"7 ft":     "84",
		"7ft 2in":  "86",
		"84 in":    "84",
		`84"`:      "84",
		"84''":     "84",
		"213.36cm": "84",
		"2.1336 m": "84",
		"84":       "84",
		"6.5'":     "78",
	}
	for in, want := range cases {
		got, ok := ParseInches(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got.String(), in)
	}

	_, ok := ParseInches("n/a")
	assert.False(t, ok)
}

func TestNormalizeAvailability(t *testing.T) {
	cases := map[string]string{
		"https://schema.org/InStock": AvailabilityInStock,
		"In Stock":                   AvailabilityInStock,
		"Unavailable":                AvailabilityOutOfStock,
		"SOLD OUT":                   AvailabilityOutOfStock,
		"http://schema.org/PreOrder": AvailabilityPreorder,
		"Available for back-order":   AvailabilityPreorder,
		"ask dealer":                 AvailabilityUnknown,
		"   ":                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeAvailability(in), in)
	}
}

func TestNormalizeSpecs(t *testing.T) {
	got := NormalizeSpecs(map[string]string{
		"Rod Length":     "2.13 m",
		"Length":         `7'`,
		"No. of Pieces":  "02",
		"Line Wt.":       "8-17 lb",
		"Blank Material": " RX7   Graphite ",
		"Guide Spacing":  "n/a",
		"":               "ignored",
	})

	assert.Equal(t, map[string]string{
		"length_in":     "84",
		"pieces":        "2",
		"line_weight":   "8-17 lb",
		"material":      "RX7 Graphite",
		"guide_spacing": "n/a",
	}, got)
}

func TestSanitizeHTML(t *testing.T) {
	got := SanitizeHTML(`<div class="x" style="color:red"><a href="javascript:alert(1)" title="t">x</a><img src="/a.png" onerror="x()"><iframe src="//evil"></iframe></div>`)
	assert.Equal(t, `<div><a title="t">x</a><img src="/a.png"/></div>`, got)
}

func TestCents(t *testing.T) {
	c, err := Cents("189.99")
	require.NoError(t, err)
	assert.Equal(t, int64(18999), *c)

	c, err = Cents("94.505")
	require.NoError(t, err)
	assert.Equal(t, int64(9451), *c)

	c, err = Cents("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = Cents("-1")
	assert.Error(t, err)

	assert.Equal(t, "189.90", FormatCents(18990))
}
