package copywriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"webmake/internal/copywriter/llm"
	"webmake/internal/domain"
)

type stubProvider struct {
	content   string
	err       error
	available bool
	got       []llm.Message
	opts      llm.Options
}

func (p *stubProvider) Complete(_ context.Context, msgs []llm.Message, opts llm.Options) (*llm.Response, error) {
	p.got = msgs
	p.opts = opts
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.content, FinishReason: "stop"}, nil
}

func (p *stubProvider) Name() string    { return "stub" }
func (p *stubProvider) Available() bool { return p.available }

var brief = domain.BusinessBrief{
	BusinessName: "Harbor Bakery",
	Industry:     "Food",
	Description:  "Sourdough and pastries by the sea",
	Tone:         "warm",
}

func TestGenerate(t *testing.T) {
	p := &stubProvider{available: true, content: `{
		"headline":"  Harbor Bakery ",
		"subheadline":"Fresh every morning",
		"about":"Family run since 1987.",
		"services":["Bread","","Cakes"],
		"cta":"Visit us",
		"color":"#C2410C"
	}`}
	svc := NewService(p, nil)

	c, err := svc.Generate(context.Background(), brief)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Headline != "Harbor Bakery" {
		t.Errorf("expected trimmed headline, got %q", c.Headline)
	}
	if len(c.Services) != 2 || c.Services[0] != "Bread" || c.Services[1] != "Cakes" {
		t.Errorf("unexpected services %v", c.Services)
	}
	if c.Color != "#C2410C" || c.CTA != "Visit us" {
		t.Errorf("unexpected cta/color %q/%q", c.CTA, c.Color)
	}

	if !p.opts.JSON {
		t.Error("expected JSON response format requested")
	}
	if len(p.got) != 2 || p.got[0].Role != "system" {
		t.Fatalf("unexpected prompt %+v", p.got)
	}
	user := p.got[1].Content
	for _, want := range []string{"Harbor Bakery", "Sourdough", "Industry: Food", "Tone: warm"} {
		if !strings.Contains(user, want) {
			t.Errorf("expected user prompt to contain %q", want)
		}
	}
	if strings.Contains(user, "Target audience") {
		t.Error("expected blank audience to be omitted")
	}
}

func TestGenerate_InvalidBrief(t *testing.T) {
	svc := NewService(&stubProvider{available: true}, nil)
	_, err := svc.Generate(context.Background(), domain.BusinessBrief{BusinessName: "x"})
	if !errors.Is(err, ErrInvalidBrief) {
		t.Fatalf("expected ErrInvalidBrief, got %v", err)
	}
	if !strings.Contains(err.Error(), "description") {
		t.Errorf("expected error to name missing field, got %v", err)
	}
}

func TestGenerate_Unavailable(t *testing.T) {
	for _, svc := range []*Service{NewService(nil, nil), NewService(&stubProvider{}, nil)} {
		if _, err := svc.Generate(context.Background(), brief); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	upstream := &llm.APIError{Status: 500, Body: "boom"}
	svc := NewService(&stubProvider{available: true, err: upstream}, nil)
	_, err := svc.Generate(context.Background(), brief)
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
}

func TestGenerate_BadCompletion(t *testing.T) {
	svc := NewService(&stubProvider{available: true, content: "Sorry, I can't help with that."}, nil)
	if _, err := svc.Generate(context.Background(), brief); !errors.Is(err, ErrBadCompletion) {
		t.Fatalf("expected ErrBadCompletion, got %v", err)
	}
}

func TestGenerate_ImageFromBrief(t *testing.T) {
	b := brief
	b.ImageURL = "https://img.example.com/a.jpg"
	svc := NewService(&stubProvider{available: true, content: `{"headline":"H"}`}, nil)
	c, err := svc.Generate(context.Background(), b)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.ImageURL != b.ImageURL {
		t.Errorf("expected brief image url, got %q", c.ImageURL)
	}
}

func TestParseContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare", `{"headline":"Bare"}`, "Bare"},
		{"fenced json", "Here you go:\n```json\n{\"headline\":\"Fenced\"}\n```\nEnjoy!", "Fenced"},
		{"fenced plain", "```\n{\"headline\":\"Plain\"}\n```", "Plain"},
		{"prose", `Sure! {"headline":"Prose"} hope that helps`, "Prose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseContent(tt.raw)
			if err != nil {
				t.Fatalf("ParseContent: %v", err)
			}
			if c.Headline != tt.want {
				t.Errorf("expected headline %q, got %q", tt.want, c.Headline)
			}
		})
	}
}

func TestParseContent_Rejects(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"headline":"   "}`, `{"headline":`} {
		if _, err := ParseContent(raw); !errors.Is(err, ErrBadCompletion) {
			t.Errorf("ParseContent(%q): expected ErrBadCompletion, got %v", raw, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	c := Normalize(domain.SiteContent{
		Headline: "H",
		Services: []string{"1", "2", " ", "3", "4", "5", "6", "7"},
		Color:    "blue",
	})
	if len(c.Services) != MaxServices {
		t.Errorf("expected %d services, got %d", MaxServices, len(c.Services))
	}
	if c.Services[5] != "6" {
		t.Errorf("expected blank skipped before capping, got %v", c.Services)
	}
	if c.CTA != "Contact Us" {
		t.Errorf("expected default cta, got %q", c.CTA)
	}
	if c.Color != DefaultColor {
		t.Errorf("expected default color, got %q", c.Color)
	}

	for _, color := range []string{"#abc", "#A1B2C3"} {
		if got := Normalize(domain.SiteContent{Color: color}).Color; got != color {
			t.Errorf("expected %s kept, got %s", color, got)
		}
	}
	for _, color := range []string{"#abcd", "abc123", "#ggg"} {
		if got := Normalize(domain.SiteContent{Color: color}).Color; got != DefaultColor {
			t.Errorf("expected %s replaced, got %s", color, got)
		}
	}
	if c := Normalize(domain.SiteContent{}); c.Services == nil {
		t.Error("expected non-nil services slice")
	}
}
