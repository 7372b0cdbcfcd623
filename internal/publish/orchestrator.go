// Package publish deploys rendered sites to static hosting providers, falling
// back to a downloadable archive when a provider has no credentials.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"webmake/internal/domain"
	"webmake/internal/observability"
	"webmake/internal/site"
)

// deployer is one provider handler.
type deployer interface {
	provider() domain.Provider
	configured() bool
	// deploy makes the single outbound call and returns the site URL.
	deploy(ctx context.Context, html string, archive []byte) (string, error)
}

// Recorder observes finished publish attempts.
type Recorder interface {
	RecordPublish(provider, outcome string, d time.Duration)
}

// Orchestrator runs the publish-or-fallback workflow.
type Orchestrator struct {
	cfg       Config
	client    *http.Client
	logger    observability.Logger
	now       func() time.Time
	recorder  Recorder
	deployers map[domain.Provider]deployer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHTTPClient sets the client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the clock used for deployment names.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRecorder registers a Recorder for publish outcomes.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New creates an Orchestrator for the given credentials.
func New(cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		client: &http.Client{},
		logger: observability.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithComponent("publish")

	o.deployers = map[domain.Provider]deployer{
		domain.ProviderNetlify: &netlifyDeployer{
			token:   cfg.NetlifyToken,
			siteID:  cfg.NetlifySiteID,
			baseURL: cfg.netlifyBase(),
			client:  o.client,
		},
		domain.ProviderVercel: &vercelDeployer{
			token:     cfg.VercelToken,
			projectID: cfg.VercelProjectID,
			teamID:    cfg.VercelTeamID,
			baseURL:   cfg.vercelBase(),
			client:    o.client,
			now:       o.now,
		},
	}
	return o
}

// Config returns the credentials the orchestrator was built with.
func (o *Orchestrator) Config() Config { return o.cfg }

// Publish validates req, builds the site archive and either deploys it to
// the requested provider or returns it as a fallback. It never panics and
// never returns an error: every outcome is a PublishResult.
func (o *Orchestrator) Publish(ctx context.Context, req domain.PublishRequest) (res domain.PublishResult) {
	start := o.now()
	stage := domain.StageReceived
	provider := strings.TrimSpace(req.Provider)
	advance := func(s domain.Stage) {
		stage = s
		o.logger.DebugContext(ctx, "publish stage", "provider", provider, "stage", string(s))
	}

	defer func() {
		if r := recover(); r != nil {
			res = domain.Failure(domain.ErrUnexpected, fmt.Sprint(r))
		}
		res.LastStage = stage
		o.finish(ctx, provider, res, start)
	}()

	if strings.TrimSpace(req.HTML) == "" || provider == "" {
		return domain.Failure(domain.ErrInvalidRequest, "html and provider are required")
	}
	p, ok := domain.ParseProvider(provider)
	if !ok {
		return domain.Failure(domain.ErrUnknownProvider, fmt.Sprintf("unsupported provider %q", provider))
	}
	provider = string(p)
	advance(domain.StageValidated)

	archive, err := site.BuildArchive(req.HTML)
	if err != nil {
		return domain.Failure(domain.ErrUnexpected, err.Error())
	}
	advance(domain.StageArchiveBuilt)

	d := o.deployers[p]
	if !d.configured() {
		advance(domain.StageCredentialsMissing)
		return domain.Fallback(FallbackMessage(d.provider()), archive)
	}
	advance(domain.StageCredentialsPresent)

	advance(domain.StageRequestSent)
	url, err := d.deploy(ctx, req.HTML, archive)
	if err != nil {
		var de *DeployError
		switch {
		case errors.As(err, &de):
			advance(domain.StageResponseError)
			return domain.Failure(domain.ErrDeploy, de.Body)
		case errors.Is(err, errMalformedResponse):
			advance(domain.StageResponseOK)
			return domain.Failure(domain.ErrUnexpected, err.Error())
		default:
			return domain.Failure(domain.ErrUnexpected, err.Error())
		}
	}
	advance(domain.StageResponseOK)

	if url == "" {
		return domain.Failure(domain.ErrUnexpected, fmt.Sprintf("%s response did not include a deployment url", p))
	}
	return domain.Success(normalizeURL(url))
}

// FallbackMessage tells the user how to enable live deploys for p.
func FallbackMessage(p domain.Provider) string {
	keys := RequiredKeys(p)
	return fmt.Sprintf(
		"%s is not configured. Set %s and %s to publish directly, or upload the attached site.zip manually.",
		displayName(p), keys[0], keys[1],
	)
}

func displayName(p domain.Provider) string {
	switch p {
	case domain.ProviderNetlify:
		return "Netlify"
	case domain.ProviderVercel:
		return "Vercel"
	default:
		return string(p)
	}
}

// normalizeURL adds https:// to bare hostnames such as "x.vercel.app".
func normalizeURL(u string) string {
	if strings.Contains(u, "://") {
		return u
	}
	return "https://" + u
}

func (o *Orchestrator) finish(ctx context.Context, provider string, res domain.PublishResult, start time.Time) {
	elapsed := o.now().Sub(start)
	args := []any{
		"provider", provider,
		"outcome", string(res.Kind),
		"stage", string(res.LastStage),
		"terminal_stage", string(res.TerminalStage()),
		"duration_ms", elapsed.Milliseconds(),
	}

	switch res.Kind {
	case domain.ResultFailure:
		args = append(args, "error_kind", string(res.ErrorKind), "details", res.Details)
		if res.ErrorKind.HTTPStatus() >= 500 {
			o.logger.ErrorContext(ctx, "publish failed", args...)
		} else {
			o.logger.WarnContext(ctx, "publish rejected", args...)
		}
	case domain.ResultFallback:
		o.logger.InfoContext(ctx, "publish fell back to archive", args...)
	default:
		args = append(args, "url", res.URL)
		o.logger.InfoContext(ctx, "publish succeeded", args...)
	}

	if o.recorder != nil {
		// Unrecognised providers are caller input; keep them out of labels.
		label := ""
		if p, ok := domain.ParseProvider(provider); ok {
			label = string(p)
		}
		o.recorder.RecordPublish(label, string(res.Kind), elapsed)
	}
}
