package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/amazon-ion/ion-go/ion"
	"sigs.k8s.io/yaml"

	"github.com/picaplus/picareader/internal/options"
	"github.com/picaplus/picareader/internal/subfield"
	"github.com/picaplus/picareader/pkg/pica"
)

type encoder interface {
	encode(pica.Record) error
}

func newEncoder(output string, w io.Writer) (encoder, error) {
	switch output {
	case options.OutputJSON:
		return jsonEncoder{enc: json.NewEncoder(w)}, nil
	case options.OutputYAML:
		return yamlEncoder{w: w}, nil
	case options.OutputIon:
		return ionEncoder{w: w}, nil
	case options.OutputPlain:
		return &plainEncoder{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output encoding %q", output)
	}
}

// jsonEncoder writes one record per line.
type jsonEncoder struct {
	enc *json.Encoder
}

func (e jsonEncoder) encode(rec pica.Record) error {
	return e.enc.Encode(rec)
}

// yamlEncoder writes a multi-document stream.
type yamlEncoder struct {
	w io.Writer
}

func (e yamlEncoder) encode(rec pica.Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if _, err := io.WriteString(e.w, "---\n"); err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

type ionEncoder struct {
	w io.Writer
}

func (e ionEncoder) encode(rec pica.Record) error {
	data, err := ion.MarshalText(rec)
	if err != nil {
		return fmt.Errorf("marshal ion: %w", err)
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(e.w, "\n")
	return err
}

// plainEncoder writes PicaPlain with records separated by an empty line,
// which the plain decoder reads back with blank-line records enabled.
type plainEncoder struct {
	w       io.Writer
	written int
}

func (e *plainEncoder) encode(rec pica.Record) error {
	if e.written > 0 {
		if _, err := io.WriteString(e.w, "\n"); err != nil {
			return err
		}
	}
	for _, f := range rec.Fields {
		if _, err := fmt.Fprintf(e.w, "%s %s\n", f.Shorthand(), subfield.Escape(f.Subfields)); err != nil {
			return err
		}
	}
	e.written++
	return nil
}
