package opq

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// pathDecoder is implemented by the coercion types; the walker hands them the
// raw value together with its field path.
type pathDecoder interface {
	decodeAt(d *decoder, path string, raw []byte) error
}

type kind int

const (
	kindNull kind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
	kindInvalid
)

func classify(raw []byte) kind {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return kindNull
	}
	switch raw[0] {
	case 'n':
		return kindNull
	case 't', 'f':
		return kindBool
	case '"':
		return kindString
	case '[':
		return kindArray
	case '{':
		return kindObject
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return kindNumber
	}
	return kindInvalid
}

func unquote(raw []byte) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// Int is an integer field that also accepts numeric strings, floats, booleans and null.
type Int int64

func (i *Int) decodeAt(d *decoder, path string, raw []byte) error {
	v, err := coerceInt(d, path, raw)
	if err != nil {
		return err
	}
	*i = Int(v)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Int) UnmarshalJSON(raw []byte) error {
	return i.decodeAt(standalone(), "", raw)
}

func coerceInt(d *decoder, path string, raw []byte) (int64, error) {
	raw = bytes.TrimSpace(raw)
	switch classify(raw) {
	case kindNull:
		return 0, nil
	case kindBool:
		if string(raw) == "true" {
			return 1, nil
		}
		return 0, nil
	case kindNumber:
		return parseInt(d, path, "number", string(raw))
	case kindString:
		s, err := unquote(raw)
		if err != nil {
			return 0, d.fail(path, "expected integer", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return parseInt(d, path, "string", s)
	}
	return 0, d.fail(path, "expected number", nil)
}

func parseInt(d *decoder, path, source, text string) (int64, error) {
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, d.fail(path, "expected integer", err)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, d.fail(path, "integer out of range", nil)
	}
	d.anomaly(Anomaly{Path: path, Source: source, Raw: text, Truncated: f != math.Trunc(f)})
	return int64(math.Trunc(f)), nil
}

// OptInt is an optional Int. Null and absent leave it unset.
type OptInt struct {
	Value int64
	Valid bool
}

func (o *OptInt) decodeAt(d *decoder, path string, raw []byte) error {
	if classify(raw) == kindNull {
		*o = OptInt{}
		return nil
	}
	v, err := coerceInt(d, path, raw)
	if err != nil {
		return err
	}
	*o = OptInt{Value: v, Valid: true}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptInt) UnmarshalJSON(raw []byte) error {
	return o.decodeAt(standalone(), "", raw)
}

// Get returns the value and whether it was set.
func (o OptInt) Get() (int64, bool) { return o.Value, o.Valid }

// Float is a float field that also accepts numeric strings, booleans and null.
type Float float64

func (f *Float) decodeAt(d *decoder, path string, raw []byte) error {
	v, _, err := coerceFloat(d, path, raw)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(raw []byte) error {
	return f.decodeAt(standalone(), "", raw)
}

// coerceFloat reports ok=false for null and blank strings.
func coerceFloat(d *decoder, path string, raw []byte) (float64, bool, error) {
	raw = bytes.TrimSpace(raw)
	switch classify(raw) {
	case kindNull:
		return 0, false, nil
	case kindBool:
		if string(raw) == "true" {
			return 1, true, nil
		}
		return 0, true, nil
	case kindNumber:
		v, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return 0, false, d.fail(path, "expected number", err)
		}
		return v, true, nil
	case kindString:
		s, err := unquote(raw)
		if err != nil {
			return 0, false, d.fail(path, "expected float", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, d.fail(path, "expected float", err)
		}
		return v, true, nil
	}
	return 0, false, d.fail(path, "expected number", nil)
}

// OptFloat is an optional Float. Null, absent and blank strings leave it unset.
type OptFloat struct {
	Value float64
	Valid bool
}

func (o *OptFloat) decodeAt(d *decoder, path string, raw []byte) error {
	v, ok, err := coerceFloat(d, path, raw)
	if err != nil {
		return err
	}
	*o = OptFloat{Value: v, Valid: ok}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptFloat) UnmarshalJSON(raw []byte) error {
	return o.decodeAt(standalone(), "", raw)
}

// Get returns the value and whether it was set.
func (o OptFloat) Get() (float64, bool) { return o.Value, o.Valid }

// Text is a string field that also accepts numbers and booleans, rendered as
// sent. Null decodes to "".
type Text string

func (t *Text) decodeAt(d *decoder, path string, raw []byte) error {
	s, _, err := coerceText(d, path, raw)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(raw []byte) error {
	return t.decodeAt(standalone(), "", raw)
}

func coerceText(d *decoder, path string, raw []byte) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	switch classify(raw) {
	case kindNull:
		return "", false, nil
	case kindBool, kindNumber:
		return string(raw), true, nil
	case kindString:
		s, err := unquote(raw)
		if err != nil {
			return "", false, d.fail(path, "expected string or number", err)
		}
		return s, true, nil
	}
	return "", false, d.fail(path, "expected string or number", nil)
}

// OptText is an optional Text. Null and absent leave it unset.
type OptText struct {
	Value string
	Valid bool
}

func (o *OptText) decodeAt(d *decoder, path string, raw []byte) error {
	s, ok, err := coerceText(d, path, raw)
	if err != nil {
		return err
	}
	*o = OptText{Value: s, Valid: ok}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptText) UnmarshalJSON(raw []byte) error {
	return o.decodeAt(standalone(), "", raw)
}

// Get returns the value and whether it was set.
func (o OptText) Get() (string, bool) { return o.Value, o.Valid }

// StockLists holds the user's watch lists. The wire form is an object, a
// list of single-key objects that are merged, or a flat list of tickers that
// becomes the default list.
type StockLists struct {
	Default []string
	// Others keeps any non-default lists undecoded.
	Others map[string]json.RawMessage
}

func (s *StockLists) decodeAt(d *decoder, path string, raw []byte) error {
	*s = StockLists{Default: []string{}}
	switch classify(raw) {
	case kindNull:
		return nil
	case kindObject:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return d.fail(path, "expected userStockLists as object or array", err)
		}
		return s.merge(d, path, obj)
	case kindArray:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return d.fail(path, "expected userStockLists as object or array", err)
		}
		if len(items) == 0 {
			return nil
		}
		allStrings := true
		for _, item := range items {
			if classify(item) != kindString {
				allStrings = false
				break
			}
		}
		if allStrings {
			for i, item := range items {
				v, err := unquote(item)
				if err != nil {
					return d.fail(indexPath(path, i), "expected string", err)
				}
				s.Default = append(s.Default, v)
			}
			return nil
		}
		merged := map[string]json.RawMessage{}
		for i, item := range items {
			var obj map[string]json.RawMessage
			if classify(item) != kindObject || json.Unmarshal(item, &obj) != nil {
				return d.fail(indexPath(path, i), "expected userStockLists as object or array", nil)
			}
			for k, v := range obj {
				merged[k] = v
			}
		}
		return s.merge(d, path, merged)
	}
	return d.fail(path, "expected userStockLists as object or array", nil)
}

func (s *StockLists) merge(d *decoder, path string, obj map[string]json.RawMessage) error {
	for k, v := range obj {
		if k != "default" {
			if s.Others == nil {
				s.Others = map[string]json.RawMessage{}
			}
			s.Others[k] = v
			continue
		}
		if classify(v) == kindNull {
			continue
		}
		var list []string
		if err := json.Unmarshal(v, &list); err != nil {
			return d.fail(fieldPath(path, k), "expected list of tickers", err)
		}
		s.Default = list
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *StockLists) UnmarshalJSON(raw []byte) error {
	return s.decodeAt(standalone(), "", raw)
}
