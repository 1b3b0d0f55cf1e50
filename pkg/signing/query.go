package signing

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// BuildQuery flattens params into a canonical query string. Nested maps and
// slices become parent[key] and parent[index]; pairs are sorted and joined with &.
func BuildQuery(params map[string]any) string {
	pairs := make([]string, 0, len(params))
	for key, value := range params {
		pairs = flatten(pairs, key, value)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

func flatten(out []string, key string, value any) []string {
	switch v := value.(type) {
	case map[string]any:
		for k, item := range v {
			out = flatten(out, key+"["+k+"]", item)
		}
		return out
	case map[string]string:
		for k, item := range v {
			out = flatten(out, key+"["+k+"]", item)
		}
		return out
	case []any:
		for i, item := range v {
			out = flatten(out, key+"["+strconv.Itoa(i)+"]", item)
		}
		return out
	case []string:
		for i, item := range v {
			out = flatten(out, key+"["+strconv.Itoa(i)+"]", item)
		}
		return out
	case string:
		return append(out, key+"="+escape(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return append(out, key+"="+escape(string(rv.Bytes())))
		}
		for i := 0; i < rv.Len(); i++ {
			out = flatten(out, key+"["+strconv.Itoa(i)+"]", rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			iter := rv.MapRange()
			for iter.Next() {
				out = flatten(out, key+"["+iter.Key().String()+"]", iter.Value().Interface())
			}
			return out
		}
	}
	return append(out, key+"="+scalar(value))
}

// escape percent-encodes everything outside the unreserved set.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(v).Int(), 10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(v).Uint(), 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return escape(v.String())
	}
	return escape(fmt.Sprint(value))
}

func formatFloat(f float64, bits int) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bits)
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
