// Package opq decodes the account snapshot returned by getUserData.
//
// The upstream payload is loosely typed: integers arrive as floats, numeric
// strings, booleans or null, and the watch lists change shape between
// accounts. Decoding coerces those quirks field by field and reports the
// first hard failure with its structural path, e.g. OPQ.ps.pos[2].q.
package opq

import (
	"bytes"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/lib/observability"
)

const decodeOp = "opq.decode"

// Anomaly records a value that was accepted but did not fit its field
// cleanly, such as a float landing in an integer field.
type Anomaly struct {
	Path      string
	Source    string
	Raw       string
	Truncated bool
}

// Decode parses a full getUserData response, {"OPQ": {...}}.
func Decode(data []byte) (*Response, error) {
	if !json.Valid(data) {
		return nil, errs.New(decodeOp, errs.CodeSerialization, errs.WithMessage("invalid JSON payload"))
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errs.New(decodeOp, errs.CodeDecode, errs.WithMessage("expected object"), errs.WithCause(err))
	}
	raw, ok := root["OPQ"]
	if !ok {
		return nil, errs.New(decodeOp, errs.CodeDecode, errs.WithPath("OPQ"), errs.WithMessage("missing field"))
	}
	d := &decoder{log: true}
	resp := &Response{}
	if err := d.decode("OPQ", raw, reflect.ValueOf(&resp.OPQ).Elem()); err != nil {
		return nil, err
	}
	resp.Anomalies = d.anomalies
	return resp, nil
}

// DecodeOPQ parses the inner OPQ object on its own. Paths still start at OPQ.
func DecodeOPQ(data []byte) (*Opq, []Anomaly, error) {
	if !json.Valid(data) {
		return nil, nil, errs.New(decodeOp, errs.CodeSerialization, errs.WithMessage("invalid JSON payload"))
	}
	d := &decoder{log: true}
	out := &Opq{}
	if err := d.decode("OPQ", data, reflect.ValueOf(out).Elem()); err != nil {
		return nil, nil, err
	}
	return out, d.anomalies, nil
}

type decoder struct {
	log       bool
	anomalies []Anomaly
}

// standalone backs the UnmarshalJSON methods of the coercion types when they
// are used outside Decode.
func standalone() *decoder { return &decoder{log: true} }

func (d *decoder) anomaly(a Anomaly) {
	d.anomalies = append(d.anomalies, a)
	if !d.log {
		return
	}
	observability.Log().Warn("integer field received fractional value, truncating",
		observability.Field{Key: "path", Value: a.Path},
		observability.Field{Key: "source", Value: a.Source},
		observability.Field{Key: "value", Value: a.Raw},
		observability.Field{Key: "lossy", Value: a.Truncated},
	)
}

func (d *decoder) fail(path, msg string, cause error) error {
	return errs.New(decodeOp, errs.CodeDecode, errs.WithPath(path), errs.WithMessage(msg), errs.WithCause(cause))
}

var pathDecoderType = reflect.TypeFor[pathDecoder]()

type unmarshaler interface {
	UnmarshalJSON([]byte) error
}

var unmarshalerType = reflect.TypeFor[unmarshaler]()

func (d *decoder) decode(path string, raw []byte, v reflect.Value) error {
	raw = bytes.TrimSpace(raw)
	if v.CanAddr() {
		ptr := v.Addr()
		if ptr.Type().Implements(pathDecoderType) {
			return ptr.Interface().(pathDecoder).decodeAt(d, path, raw)
		}
		if ptr.Type().Implements(unmarshalerType) {
			if err := ptr.Interface().(unmarshaler).UnmarshalJSON(raw); err != nil {
				return d.fail(path, "invalid value", err)
			}
			return nil
		}
	}
	null := classify(raw) == kindNull

	switch v.Kind() {
	case reflect.Pointer:
		if null {
			v.SetZero()
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return d.decode(path, raw, v.Elem())
	case reflect.Struct:
		if null {
			return nil
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return d.fail(path, "expected object", err)
		}
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := jsonName(f)
			if name == "-" {
				continue
			}
			item, ok := fields[name]
			if !ok {
				continue
			}
			if err := d.decode(fieldPath(path, name), item, v.Field(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice:
		if null {
			v.SetZero()
			return nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return d.fail(path, "expected array", err)
		}
		out := reflect.MakeSlice(v.Type(), len(items), len(items))
		for i, item := range items {
			if err := d.decode(indexPath(path, i), item, out.Index(i)); err != nil {
				return err
			}
		}
		v.Set(out)
		return nil
	case reflect.Map:
		if null {
			v.SetZero()
			return nil
		}
		var items map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return d.fail(path, "expected object", err)
		}
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := reflect.MakeMapWithSize(v.Type(), len(items))
		for _, k := range keys {
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := d.decode(fieldPath(path, k), items[k], elem); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(v.Type().Key()), elem)
		}
		v.Set(out)
		return nil
	}

	if null {
		return nil
	}
	if err := json.Unmarshal(raw, v.Addr().Interface()); err != nil {
		return d.fail(path, "expected "+v.Kind().String(), err)
	}
	return nil
}

// jsonName resolves the wire name. Names that are not valid json tag values
// (spaces) use the opq tag instead.
func jsonName(f reflect.StructField) string {
	if name, ok := f.Tag.Lookup("opq"); ok {
		return name
	}
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

func fieldPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
