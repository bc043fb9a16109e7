package language

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseValueWithVariables(t *testing.T) {
	v, err := ParseValue(`{ id: $key, tags: ["a", $tag], n: 3 }`)
	require.NoError(t, err)
	require.Equal(t, ObjectValue, v.Kind)

	got := ValueToGo(v, map[string]any{"key": "k1", "tag": "b"})
	want := map[string]any{"id": "k1", "tags": []any{"a", "b"}, "n": 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestParseValueRejectsGarbage(t *testing.T) {
	_, err := ParseValue(`{ id: `)
	require.Error(t, err)

	_, err = ParseValue(`1) other(v: 2`)
	require.Error(t, err)
}

func TestParseSelectionSet(t *testing.T) {
	ss, err := ParseSelectionSet(`{ id owner { name } }`)
	require.NoError(t, err)
	require.Len(t, ss, 2)
	require.Equal(t, "id", ss[0].(*Field).Name)
	require.Equal(t, "owner", ss[1].(*Field).Name)

	_, err = ParseSelectionSet(`id`)
	require.Error(t, err)

	_, err = ParseSelectionSet(`{ id } fragment F on T { id }`)
	require.Error(t, err)
}

func TestMergeSelectionSetsDedupesPrintedForm(t *testing.T) {
	a, err := ParseSelectionSet(`{ id owner { name } }`)
	require.NoError(t, err)
	b, err := ParseSelectionSet(`{ owner { name } id email }`)
	require.NoError(t, err)
	c, err := ParseSelectionSet(`{ owner { id } }`)
	require.NoError(t, err)

	merged := MergeSelectionSets(a, b, c)
	var names []string
	for _, sel := range merged {
		names = append(names, PrintSelectionSet(SelectionSet{sel}))
	}
	require.Len(t, merged, 4)
	require.Equal(t, PrintSelectionSet(SelectionSet{a[0]}), names[0])
	require.Equal(t, PrintSelectionSet(SelectionSet{b[2]}), names[2])
	require.Equal(t, PrintSelectionSet(SelectionSet{c[0]}), names[3])
}

func TestPrintSelectionSetRoundTrip(t *testing.T) {
	ss, err := ParseSelectionSet(`{ a: id ... on User { email } }`)
	require.NoError(t, err)
	printed := PrintSelectionSet(ss)
	again, err := ParseSelectionSet(printed)
	require.NoError(t, err)
	require.Equal(t, printed, PrintSelectionSet(again))
}
