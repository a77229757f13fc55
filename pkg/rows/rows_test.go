package rows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
)

func decode(t *testing.T, s string) interface{} {
	t.Helper()
	v, err := jsonpool.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func TestLookup(t *testing.T) {
	body := decode(t, `{"data":{"workflowSearch":{"edges":[{"cursor":"c1"}],"pageInfo":null}}}`)

	tests := []struct {
		name  string
		path  string
		want  interface{}
		found bool
	}{
		{"nested object", "data.workflowSearch.edges.0.cursor", "c1", true},
		{"missing key", "data.missing.edges", nil, false},
		{"through null", "data.workflowSearch.pageInfo.hasNextPage", nil, false},
		{"null leaf", "data.workflowSearch.pageInfo", nil, true},
		{"index out of range", "data.workflowSearch.edges.3", nil, false},
		{"scalar intermediate", "data.workflowSearch.edges.0.cursor.x", nil, false},
		{"empty path", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(body, tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupNilValue(t *testing.T) {
	_, ok := Lookup(nil, "a.b")
	assert.False(t, ok)
}

func TestFlattenStringifiesNestedArrays(t *testing.T) {
	row := decode(t, `{"id":"t1","categories":[{"id":1,"name":"Ops"}],"owner":{"id":7,"tags":["a","b"]},"n":null}`)

	out := Flatten(row).(map[string]interface{})

	assert.Equal(t, `[{"id":1,"name":"Ops"}]`, out["categories"])
	assert.Equal(t, `["a","b"]`, out["owner"].(map[string]interface{})["tags"])
	assert.Nil(t, out["n"])
	assert.Equal(t, "t1", out["id"])
}

func TestFlattenKeepsRootArray(t *testing.T) {
	v := decode(t, `[{"a":[1]},{"b":2},[3,[4]]]`)

	out := Flatten(v).([]interface{})

	require.Len(t, out, 3)
	assert.Equal(t, "[1]", out[0].(map[string]interface{})["a"])
	assert.Equal(t, []interface{}{float64(3), []interface{}{float64(4)}}, out[2])
}

func TestFlattenIdentityOnScalarObjects(t *testing.T) {
	row := map[string]interface{}{"a": "x", "b": float64(1), "c": true, "d": nil}
	want := map[string]interface{}{"a": "x", "b": float64(1), "c": true, "d": nil}

	assert.Equal(t, want, Flatten(row))
}

func TestFlattenIsStable(t *testing.T) {
	inputs := []string{
		`{"a":[1,2],"b":{"c":[{"d":[1]}]}}`,
		`[{"x":[]},[[1]],"s",1,null]`,
		`"scalar"`,
		`{"deep":{"deeper":{"deepest":["<&>"]}}}`,
	}

	for _, in := range inputs {
		once := Flatten(decode(t, in))
		twice := Flatten(Flatten(decode(t, in)))
		assert.Equal(t, once, twice, in)
	}
}

func TestToRows(t *testing.T) {
	assert.Nil(t, ToRows(nil))
	assert.Len(t, ToRows(map[string]interface{}{"a": 1}), 1)
	assert.Len(t, ToRows([]interface{}{map[string]interface{}{"a": 1}, "skip", nil}), 1)
	assert.Nil(t, ToRows("scalar"))
}

func TestInt(t *testing.T) {
	n, ok := Int(float64(250))
	assert.True(t, ok)
	assert.Equal(t, 250, n)

	n, ok = Int(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = Int(nil)
	assert.False(t, ok)
	_, ok = Int("many")
	assert.False(t, ok)
}

func TestTruthyAndString(t *testing.T) {
	assert.True(t, Truthy(true))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))

	s, ok := String("abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", s)
	_, ok = String("")
	assert.False(t, ok)
	s, ok = String(float64(12))
	assert.True(t, ok)
	assert.Equal(t, "12", s)
}
