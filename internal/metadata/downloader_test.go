package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tagList = `[
	{"name": "godot-4.4-dev1"},
	{"name": "godot-4.2.2-stable"},
	{"name": "godot-4.3-stable"},
	{"name": "godot-4.1.4-stable"},
	{"name": "master-snapshot"}
]`

func newFetchServer(t *testing.T) *httptest.Server {
	t.Helper()
	api, err := os.ReadFile(fixtureAPI)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/godotengine/godot-cpp/tags", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tagList))
	})
	mux.HandleFunc("/godotengine/godot-cpp/godot-4.3-stable/gdextension/extension_api.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(api)
	})
	mux.HandleFunc("/godotengine/godot-cpp/broken/gdextension/extension_api.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestDownloader(server *httptest.Server, ref string) *Downloader {
	return NewDownloader(FetchOptions{
		Ref:        ref,
		Timeout:    5 * time.Second,
		APIBaseURL: server.URL,
		RawBaseURL: server.URL,
	})
}

func TestLatestStable(t *testing.T) {
	server := newFetchServer(t)

	tag, err := newTestDownloader(server, "").LatestStable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "godot-4.3-stable", tag)
}

func TestDownloadLatest(t *testing.T) {
	server := newFetchServer(t)
	dest := filepath.Join(t.TempDir(), "api", "extension_api.json")

	result, err := newTestDownloader(server, "").Download(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, "godot-4.3-stable", result.Ref)
	assert.Equal(t, "Godot Engine v4.3.stable.official", result.Version)

	snap, err := Load(context.Background(), LoadOptions{APIPath: dest})
	require.NoError(t, err)
	assert.Equal(t, "4.3", snap.Version.Dir())

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestDownloadErrors(t *testing.T) {
	server := newFetchServer(t)

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{name: "unknown ref", ref: "godot-9.9-stable", want: "404"},
		{name: "invalid body", ref: "broken", want: "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "extension_api.json")
			_, err := newTestDownloader(server, tt.ref).Download(context.Background(), dest)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.NoFileExists(t, dest)
		})
	}
}

func TestLatestStableWithoutStableTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name": "godot-4.4-dev1"}]`))
	}))
	defer server.Close()

	_, err := newTestDownloader(server, "").LatestStable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stable tags")
}

func TestLatestStableFollowsPages(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		switch r.URL.Query().Get("page") {
		case "":
			w.Header().Set("Link", `<`+server.URL+r.URL.Path+`?per_page=100&page=2>; rel="next", <`+server.URL+r.URL.Path+`?per_page=100&page=2>; rel="last"`)
			_, _ = w.Write([]byte(`[{"name": "godot-4.1.4-stable"}, {"name": "godot-4.4-dev1"}]`))
		case "2":
			_, _ = w.Write([]byte(`[{"name": "godot-4.3-stable"}, {"name": "godot-3.6-stable"}]`))
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	tag, err := newTestDownloader(server, "").LatestStable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "godot-4.3-stable", tag)
}

func TestNextPage(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{name: "empty", link: "", want: ""},
		{
			name: "next and last",
			link: `<https://api.github.com/repositories/1/tags?page=2>; rel="next", <https://api.github.com/repositories/1/tags?page=4>; rel="last"`,
			want: "https://api.github.com/repositories/1/tags?page=2",
		},
		{
			name: "last page",
			link: `<https://api.github.com/repositories/1/tags?page=3>; rel="prev", <https://api.github.com/repositories/1/tags?page=1>; rel="first"`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextPage(tt.link))
		})
	}
}

func TestDownloadFileMode(t *testing.T) {
	server := newFetchServer(t)
	dest := filepath.Join(t.TempDir(), "extension_api.json")

	_, err := newTestDownloader(server, "godot-4.3-stable").Download(context.Background(), dest)
	require.NoError(t, err)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
