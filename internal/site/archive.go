package site

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// Archive entry names.
const (
	IndexFile    = "index.html"
	ManifestFile = "package.json"
)

// Manifest identity written into every archive. Static hosts use the
// package.json to detect the deployment type.
const (
	ManifestName    = "webmake-site"
	ManifestVersion = "1.0.0"
)

type manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

var manifestBytes = mustManifest()

func mustManifest() []byte {
	b, err := json.Marshal(manifest{Name: ManifestName, Version: ManifestVersion})
	if err != nil {
		panic(err)
	}
	return b
}

// Manifest returns the package.json bytes bundled with every site.
func Manifest() []byte {
	out := make([]byte, len(manifestBytes))
	copy(out, manifestBytes)
	return out
}

// BuildArchive returns a ZIP holding index.html (html verbatim) followed by
// package.json.
func BuildArchive(html string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := []struct {
		name string
		data []byte
	}{
		{IndexFile, []byte(html)},
		{ManifestFile, manifestBytes},
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadArchive extracts every entry of a ZIP archive keyed by name.
func ReadArchive(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		out[f.Name] = b
	}
	return out, nil
}
