package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/picaplus/picareader/internal/options"
	"github.com/picaplus/picareader/pkg/pica"
)

func testContext() context.Context {
	logger, _ := test.NewNullLogger()
	return options.WithLogger(context.Background(), logger)
}

func defaultConfig(t *testing.T, mutate func(*cliFlags)) runConfig {
	t.Helper()
	f := cliFlags{format: "auto", output: "json", blankLines: true}
	if mutate != nil {
		mutate(&f)
	}
	cfg, err := f.toConfig()
	require.NoError(t, err)
	return cfg
}

func fixture(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func decodeJSONLines(t *testing.T, data []byte) []pica.Record {
	t.Helper()
	var out []pica.Record
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var rec pica.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestRunAllFormats(t *testing.T) {
	var want []pica.Record
	data, err := os.ReadFile(fixture("two_records.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &want))

	var buf bytes.Buffer
	cfg := defaultConfig(t, nil)
	err = run(testContext(), cfg, []string{fixture("xml/two_records.xml"), fixture("norm/two_records.pica")}, &buf)
	require.NoError(t, err)
	got := decodeJSONLines(t, buf.Bytes())
	require.Equal(t, append(append([]pica.Record{}, want...), want...), got)
}

func TestRunGzipInput(t *testing.T) {
	raw, err := os.ReadFile(fixture("norm/two_records.pica"))
	require.NoError(t, err)
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	path := filepath.Join(t.TempDir(), "records.pica.gz")
	require.NoError(t, os.WriteFile(path, gz.Bytes(), 0o600))

	var buf bytes.Buffer
	require.NoError(t, run(testContext(), defaultConfig(t, nil), []string{path}, &buf))
	require.Len(t, decodeJSONLines(t, buf.Bytes()), 2)
}

func TestRunPlainRoundTrip(t *testing.T) {
	var plain bytes.Buffer
	cfg := defaultConfig(t, func(f *cliFlags) { f.output = "plain" })
	require.NoError(t, run(testContext(), cfg, []string{fixture("xml/two_records.xml")}, &plain))
	require.Contains(t, plain.String(), "021A $aDer @Preis des Dollars$hvon Hans $$ Müller\n")

	path := filepath.Join(t.TempDir(), "records.pp")
	require.NoError(t, os.WriteFile(path, plain.Bytes(), 0o600))
	var out bytes.Buffer
	cfg = defaultConfig(t, func(f *cliFlags) { f.format = "plain" })
	require.NoError(t, run(testContext(), cfg, []string{path}, &out))
	got := decodeJSONLines(t, out.Bytes())
	require.Len(t, got, 2)
	require.Equal(t, "von Hans $ Müller", got[0].Fields[5].Subfields[1].Value)
}

func TestRunYAML(t *testing.T) {
	var buf bytes.Buffer
	cfg := defaultConfig(t, func(f *cliFlags) { f.output = "yaml" })
	require.NoError(t, run(testContext(), cfg, []string{fixture("norm/two_records.pica")}, &buf))
	docs := strings.Split(strings.TrimPrefix(buf.String(), "---\n"), "---\n")
	require.Len(t, docs, 2)
	var rec pica.Record
	require.NoError(t, yaml.Unmarshal([]byte(docs[1]), &rec))
	require.Equal(t, "12345678X", rec.Fields[0].Subfields[0].Value)
}

func TestRunIon(t *testing.T) {
	var buf bytes.Buffer
	cfg := defaultConfig(t, func(f *cliFlags) { f.output = "ion" })
	require.NoError(t, run(testContext(), cfg, []string{fixture("xml/two_records.xml")}, &buf))
	require.Contains(t, buf.String(), "12345678X")
	require.Contains(t, buf.String(), "Wolfenbüttel")
}

func TestRunCollectsFailures(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.pp")
	require.NoError(t, os.WriteFile(bad, []byte("003@ $0ok\nnot a field\n"), 0o600))

	var buf bytes.Buffer
	cfg := defaultConfig(t, func(f *cliFlags) { f.format = "plain" })
	err := run(testContext(), cfg, []string{bad, filepath.Join(t.TempDir(), "missing.pp"), fixture("plain/single_record.pp")}, &buf)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)
	var ferr *pica.MalformedFieldError
	require.ErrorAs(t, merr.Errors[0], &ferr)
	require.Equal(t, 2, ferr.Line)
	require.Len(t, decodeJSONLines(t, buf.Bytes()), 1)
}

func TestRunFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.pp")
	require.NoError(t, os.WriteFile(path, []byte("002@/00 $0T\n000A/00 $@FOOBAR\n\n000A $@only\n"), 0o600))

	var buf bytes.Buffer
	cfg := defaultConfig(t, func(f *cliFlags) {
		f.format = "plain"
		f.strictCodes = true
		f.nfc = true
	})
	require.NoError(t, run(testContext(), cfg, []string{path}, &buf))
	got := decodeJSONLines(t, buf.Bytes())
	require.Len(t, got, 1)
	require.Len(t, got[0].Fields, 1)
}

func TestFlagValidation(t *testing.T) {
	_, err := cliFlags{format: "marc"}.toConfig()
	require.Error(t, err)
	_, err = cliFlags{output: "csv"}.toConfig()
	require.Error(t, err)
	_, err = cliFlags{ignore: "("}.toConfig()
	require.Error(t, err)
}
