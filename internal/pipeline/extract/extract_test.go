package extract

import (
	"testing"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<html><head>
<title>RX7 Spin 7'10" | Batson</title>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"BreadcrumbList","name":"crumbs"}</script>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","sku":" jdgtw710m-2cg ","name":"Judge  Twitch\n7'10\" M",
 "image":["/img/a.jpg","https://cdn.batson.com/b.jpg","/img/a.jpg"],
 "offers":{"@type":"Offer","price":"189.99","availability":"https://schema.org/InStock"}}
</script>
<script type="application/ld+json">{ broken json</script>
</head><body>
<h1>Judge Twitch</h1>
<div class="product-description"><p onclick="steal()">Fast <b>action</b></p><script>alert(1)</script></div>
<span class="price-wholesale">Dealer: $94.50</span>
<table class="specs">
 <tr><th>Length:</th><td>7' 10"</td></tr>
 <tr><th>Power</th><td>Medium</td></tr>
 <tr><th>Action</th><td>Fast</td></tr>
 <tr><th>Pieces</th><td>1 pc</td></tr>
 <tr><th>Material</th><td>RX7 Graphite</td></tr>
</table>
</body></html>`

func TestExtractDefaultSpec(t *testing.T) {
	res, err := Extract([]byte(productPage), "https://batsonenterprises.com/products/jdgtw710m-2cg", nil)
	require.NoError(t, err)

	assert.Equal(t, "JDGTW710M-2CG", res.String(FieldExternalID))
	assert.Equal(t, "jsonld", res.Fields[FieldExternalID].Source)
	assert.Equal(t, `Judge Twitch 7'10" M`, res.String(FieldTitle))
	assert.Equal(t, []string{
		"https://batsonenterprises.com/img/a.jpg",
		"https://cdn.batson.com/b.jpg",
	}, res.Strings(FieldImages))
	assert.Equal(t, "189.99", res.String(FieldPriceMsrp))
	assert.Equal(t, "94.5", res.String(FieldPriceWholesale))
	assert.Equal(t, AvailabilityInStock, res.String(FieldAvailability))
	assert.Equal(t, "<p>Fast <b>action</b></p>", res.String(FieldDescription))
	assert.Equal(t, "blank", res.String(FieldPartType))
	assert.Empty(t, res.RequiredMissing)

	assert.Equal(t, "7' 10\"", res.RawSpecs["Length"])
	assert.Equal(t, map[string]string{
		"length_in": "94",
		"power":     "Medium",
		"action":    "Fast",
		"pieces":    "1",
		"material":  "RX7 Graphite",
	}, res.NormSpecs)
}

func TestMissingFieldsAreTolerated(t *testing.T) {
	spec, err := ParseSpec([]byte(`{"fields":{
		"externalId":{"sources":[{"type":"selector","selector":".sku"}],"required":true},
		"color":{"sources":[{"type":"table","label":"Color"}]},
		"title":{"sources":[{"type":"selector","selector":"h1"}],"transforms":["collapse_whitespace"]}
	}}`))
	require.NoError(t, err)

	res, err := Extract([]byte(`<h1> Surf   Series </h1>`), "https://x.com/p/surf", spec)
	require.NoError(t, err)

	assert.Equal(t, []string{"externalId"}, res.RequiredMissing)
	assert.Nil(t, res.Fields["color"].Value(false))
	assert.Equal(t, "Surf Series", res.Fields["title"].Value(false))
	assert.Contains(t, res.Warnings(), "required field missing: externalId")
}

func TestSourcesFallBackInOrder(t *testing.T) {
	spec, err := ParseSpec([]byte(`{"fields":{
		"externalId":{"sources":[{"type":"jsonld","path":"sku"},{"type":"table","label":"model"},{"type":"slug"}],"transforms":["uppercase"]},
		"ref":{"sources":[{"type":"hash"}]},
		"brand":{"sources":[{"type":"const","value":"Batson"}]}
	}}`))
	require.NoError(t, err)

	res, err := Extract([]byte(`<dl><dt>Model:</dt><dd>rx7-84</dd></dl>`), "https://x.com/p/ignored.html", spec)
	require.NoError(t, err)
	assert.Equal(t, "RX7-84", res.String("externalId"))
	assert.Equal(t, "table", res.Fields["externalId"].Source)
	assert.Len(t, res.String("ref"), 16)
	assert.Equal(t, "Batson", res.String("brand"))

	res, err = Extract([]byte(`<p>nothing</p>`), "https://x.com/p/surf-series.html", spec)
	require.NoError(t, err)
	assert.Equal(t, "SURF-SERIES", res.String("externalId"))
	assert.Equal(t, "slug", res.Fields["externalId"].Source)
}

func TestNumberTransformWarns(t *testing.T) {
	spec, err := ParseSpec([]byte(`{"fields":{
		"price":{"sources":[{"type":"selector","selector":".price"}],"transforms":["number"]}
	}}`))
	require.NoError(t, err)

	res, err := Extract([]byte(`<span class="price">Call for price</span>`), "https://x.com/p/1", spec)
	require.NoError(t, err)
	assert.Nil(t, res.Fields["price"].Value(false))
	assert.NotEmpty(t, res.Fields["price"].Warnings)
}

func TestParseSpecRejectsUnknownParts(t *testing.T) {
	_, err := ParseSpec([]byte(`{"fields":{"a":{"sources":[{"type":"xpath"}]}}}`))
	assert.ErrorIs(t, err, e.ErrInvalidTemplateSpec)

	_, err = ParseSpec([]byte(`{"fields":{"a":{"sources":[{"type":"slug"}],"transforms":["rot13"]}}}`))
	assert.ErrorIs(t, err, e.ErrInvalidTemplateSpec)

	_, err = ParseSpec([]byte(`{"fields":`))
	assert.ErrorIs(t, err, e.ErrInvalidTemplateSpec)

	spec, err := ParseSpec(nil)
	require.NoError(t, err)
	assert.Contains(t, spec.Fields, FieldExternalID)
}
