package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"internwatch-engine/internal/config"
	"internwatch-engine/internal/runlock"
)

const page = `<table>
<thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Application/Link</th></tr></thead>
<tbody>
<tr><td>Shopify</td><td>Backend Intern</td><td>Ottawa, ON</td><td><a href="https://x/apply1">Apply</a></td></tr>
</tbody>
</table>`

func newTestContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cli := &CLI{DataDir: dir}
	var out bytes.Buffer
	ctx, err := NewContext(context.Background(), cli, &out, io.Discard, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return ctx, &out
}

func TestNewContextBootstrapsConfig(t *testing.T) {
	ctx, _ := newTestContext(t)
	if filepath.Base(ctx.ConfigPath) != "config.yml" {
		t.Fatalf("config path = %q", ctx.ConfigPath)
	}
	cfg, err := ctx.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(ctx.ConfigPath)
	if cfg.Store.SQLitePath != filepath.Join(dir, "internwatch.db") {
		t.Fatalf("sqlite path = %q", cfg.Store.SQLitePath)
	}
	if cfg.Lock.Path != filepath.Join(dir, "internwatch.lock") {
		t.Fatalf("lock path = %q", cfg.Lock.Path)
	}
}

func TestRefreshCmd(t *testing.T) {
	status := http.StatusOK
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, page)
	}))
	defer up.Close()

	ctx, out := newTestContext(t)
	cmd := &RefreshCmd{SourceURL: up.URL}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	var rep struct {
		OK       bool `json:"ok"`
		Inserted int  `json:"inserted"`
	}
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if !rep.OK || rep.Inserted != 1 {
		t.Fatalf("report = %s", out.String())
	}

	status = http.StatusBadGateway
	out.Reset()
	err := cmd.Run(ctx)
	if !errors.Is(err, ErrRunFailed) {
		t.Fatalf("err = %v, want ErrRunFailed", err)
	}
	if !strings.Contains(out.String(), `"ok": false`) {
		t.Fatalf("failure report not printed: %s", out.String())
	}
}

func TestRefreshCmdLocked(t *testing.T) {
	ctx, out := newTestContext(t)
	cfg, err := ctx.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	release, err := runlock.File{Path: cfg.Lock.Path}.TryLock(context.Background(), "refresh")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	err = (&RefreshCmd{SourceURL: "http://127.0.0.1:1/"}).Run(ctx)
	if !errors.Is(err, runlock.ErrLocked) || !errors.Is(err, ErrRunFailed) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out.String(), "run already in progress") {
		t.Fatalf("out = %s", out.String())
	}
}

func TestConfigValidateCmd(t *testing.T) {
	ctx, out := newTestContext(t)
	if err := (&ValidateConfigCmd{}).Run(ctx); err != nil {
		t.Fatalf("default config invalid: %v (%s)", err, out.String())
	}

	cfg := config.Default()
	cfg.Refresh.FreshnessHours = 0
	b, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ctx.ConfigPath, b, 0o644); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := (&ValidateConfigCmd{}).Run(ctx); err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(out.String(), "freshness_hours") {
		t.Fatalf("out = %s", out.String())
	}
}

func TestScheduledResult(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		err     error
		wantErr bool
	}{
		{"ok", true, nil, false},
		{"locked", false, runlock.ErrLocked, false},
		{"report failed", false, nil, true},
		{"lock backend down", false, errors.New("dial tcp: refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := scheduledResult(tt.ok, "boom", tt.err)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShutdownHandlerGuards(t *testing.T) {
	srv := &http.Server{}
	h := shutdownHandler("tok", srv)

	tests := []struct {
		name   string
		method string
		remote string
		token  string
		want   int
	}{
		{"get", http.MethodGet, "127.0.0.1:5000", "tok", http.StatusMethodNotAllowed},
		{"remote host", http.MethodPost, "10.0.0.8:5000", "tok", http.StatusForbidden},
		{"bad token", http.MethodPost, "127.0.0.1:5000", "nope", http.StatusUnauthorized},
		{"ipv6 loopback", http.MethodPost, "[::1]:5000", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/shutdown", nil)
			req.RemoteAddr = tt.remote
			if tt.token != "" {
				req.Header.Set("X-Shutdown-Token", tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("code = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestCLIParse(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/iw")
	cli := NewCLI()
	parser, err := kong.New(cli, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	if err != nil {
		t.Fatal(err)
	}
	kctx, err := parser.Parse([]string{"search", "-q", "software intern", "-q", "data intern"})
	if err != nil {
		t.Fatal(err)
	}
	if kctx.Command() != "search" {
		t.Fatalf("command = %q", kctx.Command())
	}
	if len(cli.Search.Query) != 2 || cli.DatabaseURL == "" || cli.DataDir == "" {
		t.Fatalf("cli = %+v", cli)
	}
}
