package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrammar(t *testing.T) {
	require.True(t, ValidTag("002@"))
	require.True(t, ValidTag("209A"))
	require.False(t, ValidTag("302@"))
	require.False(t, ValidTag("002a"))
	require.False(t, ValidTag("02@"))

	require.True(t, ValidOccurrence("00"))
	require.False(t, ValidOccurrence("0"))
	require.False(t, ValidOccurrence(""))

	require.True(t, ValidCode("a"))
	require.True(t, ValidCode("9"))
	require.False(t, ValidCode("@"))
	require.False(t, ValidCode("ab"))
}

func TestCheck(t *testing.T) {
	ok := Record{Fields: []Field{{Tag: "003@", Subfields: []Subfield{{Code: "0", Value: "123"}}}}}
	require.NoError(t, ok.Check())

	bad := Record{Fields: []Field{{Tag: "003@", Subfields: []Subfield{{Code: "@", Value: "x"}}}}}
	require.Error(t, bad.Check())

	empty := Record{Fields: []Field{{Tag: "003@", Occurrence: "01"}}}
	require.Error(t, empty.Check())
}

func TestCloneDoesNotAlias(t *testing.T) {
	orig := Record{Fields: []Field{{Tag: "021A", Subfields: []Subfield{{Code: "a", Value: "Title"}}}}}
	cp := orig.Clone()
	cp.Fields[0].Subfields[0].Value = "Changed"
	require.Equal(t, "Title", orig.Fields[0].Subfields[0].Value)
}

func TestShorthand(t *testing.T) {
	f := Field{Tag: "002@", Occurrence: "00", Subfields: []Subfield{{Code: "0", Value: "Aau"}}}
	require.Equal(t, "002@/00", f.Shorthand())
	f.Occurrence = ""
	require.Equal(t, "002@", f.Shorthand())
}
