package publish

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // Vercel identifies inline files by SHA-1
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"webmake/internal/domain"
	"webmake/internal/site"
)

// vercelDeployer creates a production deployment with the files inlined.
type vercelDeployer struct {
	token     string
	projectID string
	teamID    string
	baseURL   string
	client    *http.Client
	now       func() time.Time
}

type vercelFile struct {
	File     string `json:"file"`
	Data     string `json:"data"`
	Encoding string `json:"encoding"`
	Sha      string `json:"sha"`
}

type vercelPayload struct {
	Name    string       `json:"name"`
	Project string       `json:"project"`
	Files   []vercelFile `json:"files"`
	Target  string       `json:"target"`
	TeamID  string       `json:"teamId,omitempty"`
}

type vercelResponse struct {
	URL          string `json:"url"`
	InspectorURL string `json:"inspectorUrl"`
}

func (d *vercelDeployer) provider() domain.Provider { return domain.ProviderVercel }

func (d *vercelDeployer) configured() bool { return d.token != "" && d.projectID != "" }

// sha1Hex is the content identifier Vercel expects for each file.
func sha1Hex(b []byte) string {
	sum := sha1.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func inlineFile(name string, data []byte) vercelFile {
	return vercelFile{
		File:     name,
		Data:     base64.StdEncoding.EncodeToString(data),
		Encoding: "base64",
		Sha:      sha1Hex(data),
	}
}

func (d *vercelDeployer) payload(html string) vercelPayload {
	return vercelPayload{
		Name:    fmt.Sprintf("webmake-site-%d", d.now().UnixMilli()),
		Project: d.projectID,
		Files: []vercelFile{
			inlineFile(site.IndexFile, []byte(html)),
			inlineFile(site.ManifestFile, site.Manifest()),
		},
		Target: "production",
		TeamID: d.teamID,
	}
}

func (d *vercelDeployer) deploy(ctx context.Context, html string, _ []byte) (string, error) {
	bodyJSON, err := json.Marshal(d.payload(html))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v13/deployments", bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := send(d.client, domain.ProviderVercel, req)
	if err != nil {
		return "", err
	}

	var out vercelResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	return firstNonEmpty(out.URL, out.InspectorURL), nil
}
