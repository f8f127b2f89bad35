package mapping_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauss-project/gauss/mapping"
	"github.com/gauss-project/gauss/schema"
)

type fakeConverters map[string]bool

func (f fakeConverters) HasConverter(name string) bool { return f[name] }

func sourceSchema() schema.Schema {
	return schema.Schema{Fields: []schema.Field{
		{Name: "exchange", Type: schema.FieldType{Name: "string"}},
		{Name: "symbol", Type: schema.FieldType{Name: "string"}},
		{Name: "bid", Type: schema.FieldType{Name: "float64"}},
		{Name: "ask", Type: schema.FieldType{Name: "float64"}},
	}}
}

const protobufIntoColumnar = `
exclude("exchange")
field("symbol", {name="sym", type="LowCardinality(String)"})
field("bid", {name="bid", type="Float64"})
field("ask", {name="ask", type="Float64"})
computed({name="wrt_ts", type="DateTime64(3)"})
computed({name="spread", type="Float64", properties={materialized="ask-bid"}})
`

func TestResolveMatchesScenario2Shape(t *testing.T) {
	ms, err := mapping.Resolve(sourceSchema(), schema.Schema{Attrs: map[string]any{"table": "quotes"}}, protobufIntoColumnar, fakeConverters{})
	require.NoError(t, err)

	var targetNames []string
	for _, f := range ms.Target.Fields {
		targetNames = append(targetNames, f.Name)
	}
	assert.Equal(t, []string{"sym", "bid", "ask", "wrt_ts", "spread"}, targetNames)
	assert.Len(t, ms.Fields, 6)
	assert.Equal(t, mapping.Excluded, ms.Fields[0].Converter)
	assert.Equal(t, mapping.Computed, ms.Fields[4].Converter)
}

func TestResolveIsDeterministic(t *testing.T) {
	first, err := mapping.Resolve(sourceSchema(), schema.Schema{Attrs: map[string]any{"table": "quotes"}}, protobufIntoColumnar, fakeConverters{})
	require.NoError(t, err)
	second, err := mapping.Resolve(sourceSchema(), schema.Schema{Attrs: map[string]any{"table": "quotes"}}, protobufIntoColumnar, fakeConverters{})
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("resolving the same script twice produced different MapSchema (-first +second):\n%s", diff)
	}
}

func TestResolveRejectsDuplicateTargetNames(t *testing.T) {
	script := `
field("bid", {name="v"})
field("ask", {name="v"})
`
	_, err := mapping.Resolve(sourceSchema(), schema.Schema{}, script, fakeConverters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate target field")
}

func TestResolveRejectsUnknownSourceField(t *testing.T) {
	script := `field("nope", {name="v"})`
	_, err := mapping.Resolve(sourceSchema(), schema.Schema{}, script, fakeConverters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source field")
}

func TestResolveRejectsUnknownConverter(t *testing.T) {
	script := `field("bid", {name="v", converter="no_such_converter"})`
	_, err := mapping.Resolve(sourceSchema(), schema.Schema{}, script, fakeConverters{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converter not found")
}

func TestResolveHasBuiltinSeesSourceFields(t *testing.T) {
	script := `
if has("bid") then
  field("bid", {name="bid"})
end
if has("missing") then
  field("missing", {name="never"})
end
`
	ms, err := mapping.Resolve(sourceSchema(), schema.Schema{}, script, fakeConverters{})
	require.NoError(t, err)
	assert.Len(t, ms.Fields, 1)
}
