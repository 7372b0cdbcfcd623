package domain

import "strings"

// DefaultCTA is the call-to-action label used when content leaves it empty.
const DefaultCTA = "Contact Us"

// SiteContent is the editable copy of a generated one-page site.
type SiteContent struct {
	Headline    string   `json:"headline"`
	Subheadline string   `json:"subheadline"`
	About       string   `json:"about"`
	Services    []string `json:"services"`
	CTA         string   `json:"cta"`
	Color       string   `json:"color"`    // hex, passed through verbatim
	ImageURL    string   `json:"imageUrl"` // may be empty
}

// CTAOrDefault returns the call-to-action label, or DefaultCTA when empty.
func (c SiteContent) CTAOrDefault() string {
	if c.CTA == "" {
		return DefaultCTA
	}
	return c.CTA
}

// BusinessBrief is the user's description of a business, used to generate copy.
type BusinessBrief struct {
	BusinessName string `json:"businessName"`
	Industry     string `json:"industry,omitempty"`
	Description  string `json:"description"`
	Audience     string `json:"audience,omitempty"`
	Tone         string `json:"tone,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
}

// Missing returns the names of required brief fields that are blank.
func (b BusinessBrief) Missing() []string {
	var out []string
	if strings.TrimSpace(b.BusinessName) == "" {
		out = append(out, "businessName")
	}
	if strings.TrimSpace(b.Description) == "" {
		out = append(out, "description")
	}
	return out
}
