// Package copywriter turns a business brief into editable site copy using
// an LLM.
package copywriter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"webmake/internal/copywriter/llm"
	"webmake/internal/domain"
	"webmake/internal/observability"
)

var (
	// ErrInvalidBrief is returned when required brief fields are blank.
	ErrInvalidBrief = errors.New("invalid brief")
	// ErrUnavailable is returned when no LLM provider is configured.
	ErrUnavailable = errors.New("copy generation is not configured")
	// ErrBadCompletion is returned when the LLM output is not usable copy.
	ErrBadCompletion = errors.New("could not parse generated copy")
)

const (
	// MaxServices caps the number of services kept from a completion.
	MaxServices = 6
	// DefaultColor is the brand color used when the completion gives none.
	DefaultColor = "#4f46e5"
)

var hexColorRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// jsonBlockRe matches fenced JSON code blocks in markdown.
var jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// Service generates SiteContent from a BusinessBrief.
type Service struct {
	provider llm.Provider
	logger   observability.Logger
}

// NewService creates a Service. provider may be nil, in which case Generate
// returns ErrUnavailable.
func NewService(provider llm.Provider, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.Discard()
	}
	return &Service{provider: provider, logger: logger.WithComponent("copywriter")}
}

// Available reports whether the LLM provider is configured.
func (s *Service) Available() bool {
	return s.provider != nil && s.provider.Available()
}

// Generate asks the LLM for copy describing the brief.
func (s *Service) Generate(ctx context.Context, brief domain.BusinessBrief) (domain.SiteContent, error) {
	if missing := brief.Missing(); len(missing) > 0 {
		return domain.SiteContent{}, fmt.Errorf("%w: %s required", ErrInvalidBrief, strings.Join(missing, ", "))
	}
	if !s.Available() {
		return domain.SiteContent{}, ErrUnavailable
	}

	resp, err := s.provider.Complete(ctx, buildMessages(brief), llm.Options{JSON: true})
	if err != nil {
		return domain.SiteContent{}, fmt.Errorf("%s completion: %w", s.provider.Name(), err)
	}
	s.logger.DebugContext(ctx, "completion received",
		"provider", s.provider.Name(),
		"prompt_tokens", resp.PromptTokens,
		"output_tokens", resp.OutputTokens,
		"finish_reason", resp.FinishReason,
	)

	content, err := ParseContent(resp.Content)
	if err != nil {
		return domain.SiteContent{}, err
	}
	if content.ImageURL == "" {
		content.ImageURL = strings.TrimSpace(brief.ImageURL)
	}
	return content, nil
}

const systemPrompt = `You write marketing copy for one-page small business websites.
Reply with a single JSON object and nothing else, using exactly these keys:
"headline" (under 8 words), "subheadline" (one sentence), "about" (2-3 sentences),
"services" (array of 3 to 6 short strings), "cta" (2-4 word call to action),
"color" (a hex brand color like "#0ea5e9" that suits the business).`

func buildMessages(b domain.BusinessBrief) []llm.Message {
	var u strings.Builder
	fmt.Fprintf(&u, "Business name: %s\n", strings.TrimSpace(b.BusinessName))
	if v := strings.TrimSpace(b.Industry); v != "" {
		fmt.Fprintf(&u, "Industry: %s\n", v)
	}
	fmt.Fprintf(&u, "Description: %s\n", strings.TrimSpace(b.Description))
	if v := strings.TrimSpace(b.Audience); v != "" {
		fmt.Fprintf(&u, "Target audience: %s\n", v)
	}
	if v := strings.TrimSpace(b.Tone); v != "" {
		fmt.Fprintf(&u, "Tone: %s\n", v)
	}
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: u.String()},
	}
}

// ParseContent extracts SiteContent from raw completion text: a bare JSON
// object, a fenced block, or the outermost braces in surrounding prose.
func ParseContent(raw string) (domain.SiteContent, error) {
	for _, candidate := range candidates(raw) {
		var c domain.SiteContent
		if err := json.Unmarshal([]byte(candidate), &c); err != nil {
			continue
		}
		c = Normalize(c)
		if c.Headline == "" {
			continue
		}
		return c, nil
	}
	return domain.SiteContent{}, ErrBadCompletion
}

func candidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	out := []string{raw}
	for _, m := range jsonBlockRe.FindAllStringSubmatch(raw, -1) {
		out = append(out, m[1])
	}
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		out = append(out, raw[i:j+1])
	}
	return out
}

// Normalize trims every field, drops blank services, caps the list at
// MaxServices and fills cta and color defaults.
func Normalize(c domain.SiteContent) domain.SiteContent {
	c.Headline = strings.TrimSpace(c.Headline)
	c.Subheadline = strings.TrimSpace(c.Subheadline)
	c.About = strings.TrimSpace(c.About)
	c.CTA = strings.TrimSpace(c.CTA)
	c.Color = strings.TrimSpace(c.Color)
	c.ImageURL = strings.TrimSpace(c.ImageURL)

	services := make([]string, 0, len(c.Services))
	for _, svc := range c.Services {
		if svc = strings.TrimSpace(svc); svc != "" {
			services = append(services, svc)
		}
		if len(services) == MaxServices {
			break
		}
	}
	c.Services = services

	if c.CTA == "" {
		c.CTA = domain.DefaultCTA
	}
	if !hexColorRe.MatchString(c.Color) {
		c.Color = DefaultColor
	}
	return c
}
