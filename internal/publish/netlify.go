package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"webmake/internal/domain"
)

// netlifyDeployer uploads the site archive as a zip deploy.
type netlifyDeployer struct {
	token   string
	siteID  string
	baseURL string
	client  *http.Client
}

type netlifyResponse struct {
	DeployURL string `json:"deploy_url"`
	URL       string `json:"url"`
}

func (d *netlifyDeployer) provider() domain.Provider { return domain.ProviderNetlify }

func (d *netlifyDeployer) configured() bool { return d.token != "" && d.siteID != "" }

func (d *netlifyDeployer) deploy(ctx context.Context, _ string, archive []byte) (string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="site.zip"`)
	h.Set("Content-Type", "application/zip")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(archive); err != nil {
		return "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	endpoint := d.baseURL + "/api/v1/sites/" + url.PathEscape(d.siteID) + "/deploys"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := send(d.client, domain.ProviderNetlify, req)
	if err != nil {
		return "", err
	}

	var out netlifyResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	return firstNonEmpty(out.DeployURL, out.URL), nil
}
