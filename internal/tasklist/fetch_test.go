package tasklist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{"status":"Running","tasks":[{"title":"Plan","status":"done"},{"title":"Build","status":"running","forId":"msg-1"}]}`

func TestHTTPFetcher(t *testing.T) {
	t.Run("decodes the document and sends credentials", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(sampleDocument))
		}))
		defer srv.Close()

		doc, err := NewHTTPFetcher("secret", 0).Fetch(context.Background(), Reference(srv.URL+"/tasklist/1"))
		require.NoError(t, err)

		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "Running", doc.Status)
		require.Len(t, doc.Tasks, 2)
		assert.Equal(t, Task{Title: "Build", Status: StatusRunning, ForID: "msg-1"}, doc.Tasks[1])
	})

	t.Run("keeps cookies between fetches", func(t *testing.T) {
		var sawCookie bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie("session"); err == nil {
				sawCookie = true
			}
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			_, _ = w.Write([]byte(sampleDocument))
		}))
		defer srv.Close()

		f := NewHTTPFetcher("", 0)
		_, err := f.Fetch(context.Background(), Reference(srv.URL))
		require.NoError(t, err)
		_, err = f.Fetch(context.Background(), Reference(srv.URL))
		require.NoError(t, err)

		assert.True(t, sawCookie)
	})

	t.Run("non-200 is a fetch failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewHTTPFetcher("", 0).Fetch(context.Background(), Reference(srv.URL))
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, Reference(srv.URL), fetchErr.Ref)
	})

	t.Run("unparseable body is a fetch failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":`))
		}))
		defer srv.Close()

		_, err := NewHTTPFetcher("", 0).Fetch(context.Background(), Reference(srv.URL))
		var fetchErr *FetchError
		assert.ErrorAs(t, err, &fetchErr)
	})

	t.Run("reads local files", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tasks.json")
		require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o644))

		f := NewHTTPFetcher("", 0)
		doc, err := f.Fetch(context.Background(), Reference(path))
		require.NoError(t, err)
		assert.Len(t, doc.Tasks, 2)

		doc, err = f.Fetch(context.Background(), Reference("file://"+path))
		require.NoError(t, err)
		assert.Equal(t, "Running", doc.Status)
	})

	t.Run("rejects unknown schemes and empty references", func(t *testing.T) {
		f := NewHTTPFetcher("", 0)
		_, err := f.Fetch(context.Background(), Reference("ftp://host/tasks"))
		assert.Error(t, err)
		_, err = f.Fetch(context.Background(), Reference(""))
		assert.Error(t, err)
	})
}
