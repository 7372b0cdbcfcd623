package site

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/zip"
)

// entryNames lists archive entries in stored order.
func entryNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestBuildArchive_Entries(t *testing.T) {
	html := "<p>hello</p>"
	data, err := BuildArchive(html)
	if err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}

	names := entryNames(t, data)
	if len(names) != 2 || names[0] != IndexFile || names[1] != ManifestFile {
		t.Fatalf("expected [index.html package.json], got %v", names)
	}

	files, err := ReadArchive(data)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if string(files[IndexFile]) != html {
		t.Errorf("expected index.html %q, got %q", html, files[IndexFile])
	}

	var m struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(files[ManifestFile], &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.Name != "webmake-site" || m.Version != "1.0.0" {
		t.Errorf("unexpected manifest %+v", m)
	}
}

func TestManifest(t *testing.T) {
	if got := string(Manifest()); got != `{"name":"webmake-site","version":"1.0.0"}` {
		t.Fatalf("unexpected manifest %s", got)
	}
	m := Manifest()
	m[0] = 'x'
	if Manifest()[0] != '{' {
		t.Fatal("Manifest must return a copy")
	}
}

func TestBuildArchive_UnicodeRoundTrip(t *testing.T) {
	inputs := []string{
		"<h1>Café Ünïcödé</h1>",
		"<p>日本語のページ</p>",
		"<p>emoji 🎂🥐</p>",
		"<p>tabs\tand\nnewlines</p>",
		"x",
	}
	for _, html := range inputs {
		data, err := BuildArchive(html)
		if err != nil {
			t.Fatalf("BuildArchive(%q): %v", html, err)
		}
		files, err := ReadArchive(data)
		if err != nil {
			t.Fatalf("ReadArchive: %v", err)
		}
		if string(files[IndexFile]) != html {
			t.Errorf("round trip mismatch: want %q, got %q", html, files[IndexFile])
		}
	}
}

func TestReadArchive_Invalid(t *testing.T) {
	if _, err := ReadArchive([]byte("not a zip")); err == nil {
		t.Fatal("expected error for invalid archive")
	}
}
