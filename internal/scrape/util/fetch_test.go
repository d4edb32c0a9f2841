package util

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("User-Agent") != "test-agent" {
				t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
			}
			_, _ = w.Write([]byte("<table></table>"))
		case "/empty":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, NewHostLimiter(100, 10), "test-agent")
	ctx := context.Background()

	res, err := c.Get(ctx, srv.URL+"/ok", "text/html")
	if err != nil {
		t.Fatalf("Get ok: %v", err)
	}
	if res.Status != 200 || string(res.Body) != "<table></table>" {
		t.Fatalf("unexpected result: %+v", res)
	}

	_, err = c.Get(ctx, srv.URL+"/missing", "")
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("want 404 HTTPStatusError, got %v", err)
	}

	if _, err := c.Get(ctx, srv.URL+"/empty", ""); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("want ErrEmptyBody, got %v", err)
	}
}
