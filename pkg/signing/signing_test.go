package signing

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignKnownVector(t *testing.T) {
	got := Sign("secret", "payload123")
	if got != "2d0b504df2ec038ce920731d9e4a3e0e9743cabbb6fc2c88ab923f1c52368b61" {
		t.Fatalf("unexpected signature %s", got)
	}
}

func TestSignIsSensitiveToEveryByte(t *testing.T) {
	base := Sign("k", `{"a":1}1700000000`)
	if Sign("k", `{"a":1}1700000000`) != base {
		t.Fatalf("signature must be deterministic")
	}
	if Sign("k", `{"a":2}1700000000`) == base {
		t.Fatalf("payload change must change the signature")
	}
	if Sign("k", `{"a":1}1700000001`) == base {
		t.Fatalf("timestamp change must change the signature")
	}
	if Sign("", "x") == "" {
		t.Fatalf("empty keys are accepted")
	}
}

func TestStringifyCompactSortedUnescaped(t *testing.T) {
	out, err := Stringify(map[string]any{
		"tickers": "AAPL.US",
		"b":       []any{1, "x<y>"},
		"a":       map[string]any{"z": true, "c": nil},
	})
	require.NoError(t, err)
	require.Equal(t, `{"a":{"c":null,"z":true},"b":[1,"x<y>"],"tickers":"AAPL.US"}`, string(out))
}

func TestStringifyRejectsUnsupportedValue(t *testing.T) {
	if _, err := Stringify(map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatalf("expected serialization error")
	}
}

func TestBuildQueryFlattensAndSorts(t *testing.T) {
	got := BuildQuery(map[string]any{
		"cmd":   "getHloc",
		"text":  "a b&c",
		"flag":  false,
		"none":  nil,
		"count": -1,
		"price": 1.5,
		"params": map[string]any{
			"list": []any{"x", 2},
			"obj":  map[string]any{"k": "v"},
		},
		"empty": map[string]any{},
	})
	want := "cmd=getHloc&count=-1&flag=false&none=null&params[list][0]=x&params[list][1]=2&params[obj][k]=v&price=1.5&text=a%20b%26c"
	if got != want {
		t.Fatalf("unexpected query\n got: %s\nwant: %s", got, want)
	}
}

func TestBuildQueryOrderIndependent(t *testing.T) {
	a := map[string]any{}
	b := map[string]any{}
	keys := []string{"z", "a", "m", "b", "y"}
	for i, k := range keys {
		a[k] = i
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b[keys[i]] = i
	}
	if BuildQuery(a) != BuildQuery(b) {
		t.Fatalf("canonical form depends on insertion order")
	}
}

func TestHeadersApplyAndQuery(t *testing.T) {
	h := NewHeaders("pub", "secret", "123", "payload")
	if h.Signature != Sign("secret", "payload123") {
		t.Fatalf("signature must cover payload+timestamp")
	}
	only := NewHeaders("pub", "secret", "123", "")
	if only.Signature != Sign("secret", "123") {
		t.Fatalf("empty payload signs the timestamp only")
	}

	hdr := http.Header{}
	h.Apply(hdr)
	require.Equal(t, "pub", hdr.Get(HeaderPublicKey))
	require.Equal(t, "123", hdr.Get(HeaderTimestamp))
	require.Equal(t, h.Signature, hdr.Get(HeaderSignature))

	q := h.Query()
	require.Equal(t, "pub", q.Get("X-NtApi-PublicKey"))
	require.Equal(t, h.Signature, q.Get("X-NtApi-Sig"))
}
