package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webmake/internal/site"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	for _, k := range []string{
		"WEBMAKE_CONFIG", "NETLIFY_TOKEN", "NETLIFY_SITE_ID", "VERCEL_TOKEN",
		"VERCEL_PROJECT_ID", "VERCEL_TEAM_ID", "WEBMAKE_LLM_API_KEY", "WEBMAKE_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRender(t *testing.T) {
	content := writeTemp(t, "content.json", `{"headline":"Harbor Bakery","services":["Bread","Cakes"]}`)

	out, _, err := run(t, "render", "--content", content)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<h1>Harbor Bakery</h1>") {
		t.Errorf("expected headline in output, got %q", out)
	}
	if strings.Count(out, "<li>") != 2 {
		t.Errorf("expected two service items")
	}
}

func TestRender_MissingHeadline(t *testing.T) {
	content := writeTemp(t, "content.json", `{"about":"no headline"}`)

	_, _, err := run(t, "render", "-c", content)
	if err == nil || !strings.Contains(err.Error(), "headline is required") {
		t.Fatalf("expected headline error, got %v", err)
	}
}

func TestExport(t *testing.T) {
	html := writeTemp(t, "index.html", "<p>ready</p>")
	out := filepath.Join(t.TempDir(), "site.zip")

	if _, _, err := run(t, "export", "--html", html, "--out", out); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	entries, err := site.ReadArchive(data)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if string(entries[site.IndexFile]) != "<p>ready</p>" {
		t.Errorf("unexpected index.html %q", entries[site.IndexFile])
	}
}

func TestExport_SourceFlags(t *testing.T) {
	html := writeTemp(t, "index.html", "<p>x</p>")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"none", []string{"export"}, "one of --html or --content"},
		{"both", []string{"export", "--html", html, "--content", html}, "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestPublish_Fallback(t *testing.T) {
	html := writeTemp(t, "index.html", "<h1>Hi</h1>")
	out := filepath.Join(t.TempDir(), "site.zip")

	stdout, stderr, err := run(t, "publish", "-p", "netlify", "--html", html, "-o", out)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if stdout != "" {
		t.Errorf("expected no url on stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "NETLIFY_TOKEN") || !strings.Contains(stderr, "archive written to") {
		t.Errorf("expected fallback notice, got %q", stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	entries, err := site.ReadArchive(data)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if string(entries[site.IndexFile]) != "<h1>Hi</h1>" {
		t.Errorf("unexpected index.html %q", entries[site.IndexFile])
	}
}

func TestPublish_Vercel(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer vc-token" {
			t.Errorf("unexpected authorization %q", got)
		}
		_, _ = w.Write([]byte(`{"url":"https://cli-site.vercel.app"}`))
	}))
	defer mock.Close()

	cfg := writeTemp(t, "webmake.yaml", "publish:\n  vercel_token: vc-token\n  vercel_project_id: prj\n  vercel_base_url: "+mock.URL+"\n")
	html := writeTemp(t, "index.html", "<h1>Hi</h1>")

	stdout, _, err := run(t, "--config", cfg, "publish", "-p", "vercel", "--html", html)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if strings.TrimSpace(stdout) != "https://cli-site.vercel.app" {
		t.Errorf("expected deployment url, got %q", stdout)
	}
}

func TestPublish_UnknownProvider(t *testing.T) {
	html := writeTemp(t, "index.html", "<h1>Hi</h1>")

	_, _, err := run(t, "publish", "-p", "bogus", "--html", html)
	if err == nil || !strings.Contains(err.Error(), "UnknownProvider") {
		t.Fatalf("expected UnknownProvider error, got %v", err)
	}
}

func TestGenerate_Unconfigured(t *testing.T) {
	brief := writeTemp(t, "brief.json", `{"businessName":"Harbor","description":"Bread"}`)

	_, _, err := run(t, "generate", "--brief", brief)
	if err == nil || !strings.Contains(err.Error(), "WEBMAKE_LLM_API_KEY") {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestKeygen(t *testing.T) {
	out, _, err := run(t, "keygen", "-n", "3")
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	lines := strings.Fields(out)
	if len(lines) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(lines))
	}
	seen := map[string]bool{}
	for _, k := range lines {
		if !strings.HasPrefix(k, "wm_") {
			t.Errorf("expected wm_ prefix, got %q", k)
		}
		if seen[k] {
			t.Errorf("duplicate key %q", k)
		}
		seen[k] = true
	}

	if _, _, err := run(t, "keygen", "-n", "0"); err == nil {
		t.Error("expected error for zero count")
	}
}
