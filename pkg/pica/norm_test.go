package pica

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/picaplus/picareader/internal/testutil"
)

func TestNormDecoderReadString(t *testing.T) {
	d := NewNormDecoder()
	require.NoError(t, d.Open("003@ \x1f0test\x1e002@ \x1f0Aau"))
	defer d.Close()

	rec, err := d.ReadOne()
	require.NoError(t, err)
	require.Equal(t, Record{Fields: []Field{
		{Tag: "003@", Subfields: []Subfield{{Code: "0", Value: "test"}}},
		{Tag: "002@", Subfields: []Subfield{{Code: "0", Value: "Aau"}}},
	}}, rec)

	for i := 0; i < 3; i++ {
		_, err = d.ReadOne()
		require.ErrorIs(t, err, io.EOF)
	}
}

func TestNormDecoderFixture(t *testing.T) {
	var want []Record
	testutil.LoadJSON(t, "two_records.json", &want)

	for _, size := range []int{1, 7, 4096} {
		d := NewNormDecoder(WithBufferSize(size))
		require.NoError(t, d.Open(testutil.Open(t, "norm/two_records.pica")))
		got := readAll(t, d)
		require.Equal(t, want, got, "buffer size %d", size)
		require.NoError(t, d.Close())
	}
}

func TestNormDecoderOneByteReads(t *testing.T) {
	data := testutil.LoadBytes(t, "norm/two_records.pica")
	d := NewNormDecoder()
	require.NoError(t, d.Open(iotest.OneByteReader(strings.NewReader(string(data)))))
	require.Len(t, readAll(t, d), 2)
}

func TestNormDecoderOccurrenceAndSubfields(t *testing.T) {
	d := NewNormDecoder()
	require.NoError(t, d.Open([]byte("  \n201B/01 \x1f014-09-95\x1ft\x1fx10:45\x1e\x1d")))
	rec, err := d.ReadOne()
	require.NoError(t, err)
	require.Equal(t, Field{
		Tag:        "201B",
		Occurrence: "01",
		Subfields: []Subfield{
			{Code: "0", Value: "14-09-95"},
			{Code: "t", Value: ""},
			{Code: "x", Value: "10:45"},
		},
	}, rec.Fields[0])
	_, err = d.ReadOne()
	require.ErrorIs(t, err, io.EOF)
}

func TestNormDecoderDropsEmptyRecords(t *testing.T) {
	d := NewNormDecoder()
	require.NoError(t, d.Open("003@ \x1f01\x1e\x1d\x1d\x1d\n003@ \x1f02\x1e\x1d\x1d"))
	got := readAll(t, d)
	require.Len(t, got, 2)
	require.Equal(t, "2", got[1].Fields[0].Subfields[0].Value)
}

func TestNormDecoderFieldEndsAtRecordSeparator(t *testing.T) {
	d := NewNormDecoder()
	require.NoError(t, d.Open("003@ \x1f01\x1d003@ \x1f02"))
	got := readAll(t, d)
	require.Len(t, got, 2)
	require.Equal(t, "1", got[0].Fields[0].Subfields[0].Value)
}

func TestNormDecoderEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \n", "\x1d\x1d"} {
		d := NewNormDecoder()
		require.NoError(t, d.Open(in))
		_, err := d.ReadOne()
		require.ErrorIs(t, err, io.EOF, "%q", in)
	}
}

func TestNormDecoderMalformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{name: "plain text", input: "003@ $0test"},
		{name: "missing space", input: "003@\x1f0test"},
		{name: "no subfields", input: "003@ \x1f"},
		{name: "empty subfield", input: "003@ \x1f0a\x1f\x1fb"},
		{name: "bad second field", input: "003@ \x1f0a\x1e3x"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			d := NewNormDecoder()
			require.NoError(t, d.Open(tc.input))
			_, err := d.ReadOne()
			var merr *MalformedFieldError
			require.ErrorAs(t, err, &merr)
			require.Equal(t, "norm", merr.Format)
			require.NotEmpty(t, merr.Raw)
			require.NoError(t, d.Close())
		})
	}
}

func TestNormDecoderStreamError(t *testing.T) {
	boom := errors.New("disk on fire")
	d := NewNormDecoder()
	require.NoError(t, d.Open(io.MultiReader(strings.NewReader("003@ \x1f0te"), iotest.ErrReader(boom))))
	_, err := d.ReadOne()
	var serr *StreamIOError
	require.ErrorAs(t, err, &serr)
	require.ErrorIs(t, err, boom)
	require.NoError(t, d.Close())
}

func TestNormDecoderLifecycle(t *testing.T) {
	d := NewNormDecoder()
	_, err := d.ReadOne()
	require.ErrorIs(t, err, io.EOF)
	require.ErrorIs(t, d.Open(3.14), ErrInvalidSource)

	src := &trackingReader{Reader: strings.NewReader("003@ \x1f0a")}
	require.NoError(t, d.Open(src))
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	require.Equal(t, 1, src.closed)
}

func readAll(t *testing.T, d Decoder) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := d.ReadOne()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}
