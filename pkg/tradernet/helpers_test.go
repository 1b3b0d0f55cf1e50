package tradernet

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradernet/config"
	"github.com/coachpo/tradernet/pkg/core"
)

type call struct {
	Path   string
	Query  string
	Params map[string]any
}

type fakeAPI struct {
	mu       sync.Mutex
	calls    []call
	commands map[string]func(params map[string]any) (int, string)
	paths    map[string]func(r *http.Request) (int, []byte)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		commands: map[string]func(map[string]any) (int, string){},
		paths:    map[string]func(*http.Request) (int, []byte){},
	}
}

func (f *fakeAPI) handle(cmd string, fn func(params map[string]any) (int, string)) {
	f.commands[cmd] = fn
}

func (f *fakeAPI) route(path string, fn func(r *http.Request) (int, []byte)) {
	f.paths[path] = fn
}

func (f *fakeAPI) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAPI) commandCalls(cmd string) []call {
	var out []call
	for _, c := range f.recorded() {
		if c.Path == "/api/"+cmd {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var params map[string]any
	if len(body) > 0 {
		_ = json.Unmarshal(body, &params)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{Path: r.URL.Path, Query: r.URL.RawQuery, Params: params})
	f.mu.Unlock()

	if fn, ok := f.paths[r.URL.Path]; ok {
		status, payload := fn(r)
		w.WriteHeader(status)
		_, _ = w.Write(payload)
		return
	}
	if cmd, ok := strings.CutPrefix(r.URL.Path, "/api/"); ok {
		if fn, ok := f.commands[cmd]; ok {
			status, payload := fn(params)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(payload))
			return
		}
		_, _ = w.Write([]byte(`{}`))
		return
	}
	http.NotFound(w, r)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c := core.New(config.Credentials{Public: "pub", Private: "priv"}, core.WithBaseURL(srv.URL))
	return New(c, WithRefbookParallelism(2))
}
