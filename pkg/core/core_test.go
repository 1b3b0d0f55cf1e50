package core

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradernet/config"
	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/lib/async"
	"github.com/coachpo/tradernet/lib/observability"
	"github.com/coachpo/tradernet/pkg/signing"
)

var fixedNow = func() time.Time { return time.Unix(1700000000, 0) }

type captureLogger struct {
	warns []string
}

func (c *captureLogger) Debug(string, ...observability.Field) {}
func (c *captureLogger) Info(string, ...observability.Field)  {}
func (c *captureLogger) Warn(msg string, _ ...observability.Field) {
	c.warns = append(c.warns, msg)
}
func (c *captureLogger) Error(string, ...observability.Field) {}

func newTestCore(t *testing.T, handler http.HandlerFunc, creds config.Credentials) (*Core, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(creds, WithBaseURL(srv.URL), WithClock(fixedNow)), &hits
}

func TestAuthorizedRequestMissingKeypairNoIO(t *testing.T) {
	for _, creds := range []config.Credentials{
		{Public: "", Private: ""},
		{Public: "pub", Private: ""},
		{Public: "", Private: "priv"},
	} {
		c, hits := newTestCore(t, func(http.ResponseWriter, *http.Request) {}, creds)
		_, err := c.AuthorizedRequest(context.Background(), "getPositionJson", nil, 2)
		if !errs.Is(err, errs.CodeMissingKeypair) {
			t.Fatalf("expected missing keypair, got %v", err)
		}
		if _, err := c.AuthorizedGet(context.Background(), "/x", nil, 2); !errs.Is(err, errs.CodeMissingKeypair) {
			t.Fatalf("expected missing keypair for GET, got %v", err)
		}
		if hits.Load() != 0 {
			t.Fatalf("no request may reach the server")
		}
	}
}

func TestAuthorizedRequestRejectsVersion(t *testing.T) {
	c, hits := newTestCore(t, func(http.ResponseWriter, *http.Request) {}, config.Credentials{Public: "p", Private: "k"})
	_, err := c.AuthorizedRequest(context.Background(), "cmd", nil, 4)
	if !errs.Is(err, errs.CodeUnsupportedVersion) {
		t.Fatalf("expected unsupported version, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("no request may reach the server")
	}
}

func TestAuthorizedRequestSignsBodyAndTimestamp(t *testing.T) {
	var (
		path, ctype, pub, ts, sig string
		body                      []byte
	)
	c, _ := newTestCore(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		ctype = r.Header.Get("Content-Type")
		pub = r.Header.Get(signing.HeaderPublicKey)
		ts = r.Header.Get(signing.HeaderTimestamp)
		sig = r.Header.Get(signing.HeaderSignature)
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"result":1}`))
	}, config.Credentials{Public: "pub", Private: "secret"})

	out, err := c.AuthorizedRequest(context.Background(), "getStockData", map[string]any{"ticker": "AAPL.US", "lang": "en"}, 3)
	require.NoError(t, err)
	require.JSONEq(t, `{"result":1}`, string(out))
	require.Equal(t, "/api/getStockData", path)
	require.Equal(t, "application/json", ctype)
	require.Equal(t, "pub", pub)
	require.Equal(t, "1700000000", ts)
	require.Equal(t, `{"lang":"en","ticker":"AAPL.US"}`, string(body))
	require.Equal(t, signing.Sign("secret", string(body)+ts), sig)
}

func TestAuthorizedRequestReturnsErrMsgPayload(t *testing.T) {
	logger := new(captureLogger)
	observability.SetLogger(logger)
	defer observability.SetLogger(nil)

	c, _ := newTestCore(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errMsg":"Bad order","code":12}`))
	}, config.Credentials{Public: "p", Private: "k"})

	out, err := c.AuthorizedRequest(context.Background(), "putTradeOrder", map[string]any{}, 2)
	require.NoError(t, err)
	require.JSONEq(t, `{"errMsg":"Bad order","code":12}`, string(out))
	if len(logger.warns) != 1 {
		t.Fatalf("expected one errMsg warning, got %v", logger.warns)
	}
}

func TestAuthorizedRequestInvalidJSON(t *testing.T) {
	c, _ := newTestCore(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}, config.Credentials{Public: "p", Private: "k"})
	_, err := c.AuthorizedRequest(context.Background(), "x", nil, 2)
	if !errs.Is(err, errs.CodeSerialization) {
		t.Fatalf("expected serialization error, got %v", err)
	}
}

func TestPlainRequestEncodesCommand(t *testing.T) {
	var q string
	var signed bool
	c, _ := newTestCore(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query().Get("q")
		signed = r.Header.Get(signing.HeaderSignature) != ""
		_, _ = w.Write([]byte(`[1,2]`))
	}, config.Credentials{})

	out, err := c.PlainRequest(context.Background(), "tickerFinder", map[string]any{"text": "AAPL@US"})
	require.NoError(t, err)
	require.Equal(t, `[1,2]`, string(out))
	require.Equal(t, `{"cmd":"tickerFinder","params":{"text":"AAPL@US"}}`, q)
	require.False(t, signed)

	_, err = c.PlainRequest(context.Background(), "getTopSecurities", nil)
	require.NoError(t, err)
	require.Equal(t, `{"cmd":"getTopSecurities"}`, q)
}

func TestAuthorizedGetSignsTimestampOnly(t *testing.T) {
	var sig, query string
	c, _ := newTestCore(t, func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(signing.HeaderSignature)
		query = r.URL.RawQuery
		_, _ = w.Write([]byte("bin"))
	}, config.Credentials{Public: "p", Private: "k"})

	resp, err := c.AuthorizedGet(context.Background(), "/files", map[string]any{"id": 7}, 2)
	require.NoError(t, err)
	require.Equal(t, "bin", string(resp.Body))
	require.Equal(t, signing.Sign("k", "1700000000"), sig)
	require.Equal(t, "id=7", query)
}

func TestWebsocketURLCarriesAuth(t *testing.T) {
	c := New(config.Credentials{Public: "pub", Private: "k"}, WithWebsocketURL("wss://ws.example"), WithClock(fixedNow))
	raw, err := c.WebsocketURL()
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "ws.example", u.Host)
	require.Equal(t, "pub", u.Query().Get("X-NtApi-PublicKey"))
	require.Equal(t, "1700000000", u.Query().Get("X-NtApi-Timestamp"))
	require.Equal(t, signing.Sign("k", "1700000000"), u.Query().Get("X-NtApi-Sig"))
}

func TestNewWarnsOnMissingKeypair(t *testing.T) {
	logger := new(captureLogger)
	observability.SetLogger(logger)
	defer observability.SetLogger(nil)

	New(config.Credentials{Public: "only"}, WithBaseURL("https://example.test"))
	if len(logger.warns) != 1 || !strings.Contains(logger.warns[0], "https://example.test/tradernet-api/auth-api") {
		t.Fatalf("expected auth-api warning, got %v", logger.warns)
	}
}

func TestFromConfigReadsINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tn.ini")
	require.NoError(t, os.WriteFile(path, []byte("[auth]\npublic=a\nprivate=b\n"), 0o600))
	c, err := FromConfig(path)
	require.NoError(t, err)
	require.True(t, c.HasKeypair())
	require.Equal(t, "a", c.PublicKey())
}

func TestAsyncMatchesBlocking(t *testing.T) {
	c, hits := newTestCore(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"sessions":[]}`))
	}, config.Credentials{Public: "p", Private: "k"})
	pool, err := async.NewPool(1, 1)
	require.NoError(t, err)
	defer pool.Close()

	out, err := c.Async(pool).AuthorizedRequest(context.Background(), "getSecuritySessions", nil, 2).Await(context.Background())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))

	_, err = c.Async(pool).AuthorizedRequest(context.Background(), "x", nil, 9).Await(context.Background())
	if !errs.Is(err, errs.CodeUnsupportedVersion) {
		t.Fatalf("expected unsupported version through async, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
}

func TestFromSettingsOwnsPool(t *testing.T) {
	s := config.Apply(config.Default(), config.WithCredentials("p", "k"), config.WithAsyncPool(1, 1))
	c, err := FromSettings(s)
	require.NoError(t, err)
	require.NotNil(t, c.Transport().Pool())
	c.Close()
}

func TestFromSettingsRejectsUnknownLogFormat(t *testing.T) {
	s := config.Default()
	s.LogFormat = "xml"
	_, err := FromSettings(s)
	require.True(t, errs.Is(err, errs.CodeInvalid))
}
