// Package site renders SiteContent into a self-contained HTML page and
// packages pages into deployable archives.
package site

import (
	"strconv"
	"strings"
	"time"

	"webmake/internal/domain"
)

// Renderer turns SiteContent into a single HTML document. The zero value
// uses the wall clock for the footer year.
type Renderer struct {
	Now func() time.Time
}

var defaultRenderer = Renderer{}

// Render renders content with the wall clock.
func Render(content domain.SiteContent) string {
	return defaultRenderer.Render(content)
}

func (r Renderer) year() int {
	if r.Now != nil {
		return r.Now().Year()
	}
	return time.Now().Year()
}

// Render returns the page for content. Field values are inlined without
// escaping; color and imageUrl are passed through verbatim.
func (r Renderer) Render(content domain.SiteContent) string {
	var b strings.Builder
	b.Grow(4096)

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<title>")
	b.WriteString(content.Headline)
	b.WriteString("</title>\n<style>\n")
	b.WriteString(baseCSS)
	b.WriteString(".hero{background:linear-gradient(135deg, ")
	b.WriteString(content.Color)
	b.WriteString(" 0%, #111827 100%);}\n")
	b.WriteString(".cta a{background:")
	b.WriteString(content.Color)
	b.WriteString(";}\n</style>\n</head>\n<body>\n")

	b.WriteString("<header class=\"hero\">\n<h1>")
	b.WriteString(content.Headline)
	b.WriteString("</h1>\n<p class=\"subheadline\">")
	b.WriteString(content.Subheadline)
	b.WriteString("</p>\n</header>\n<main>\n")

	if content.ImageURL != "" {
		b.WriteString("<img class=\"feature\" src=\"")
		b.WriteString(content.ImageURL)
		b.WriteString("\" alt=\"")
		b.WriteString(content.Headline)
		b.WriteString("\">\n")
	}

	b.WriteString("<section class=\"about\">\n<h2>About</h2>\n<p>")
	b.WriteString(content.About)
	b.WriteString("</p>\n</section>\n")

	b.WriteString("<section class=\"services\">\n<h2>Services</h2>\n<ul>\n")
	for _, svc := range content.Services {
		b.WriteString("<li>")
		b.WriteString(svc)
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n</section>\n")

	b.WriteString("<section class=\"cta\">\n<a href=\"#contact\" id=\"contact\">")
	b.WriteString(content.CTAOrDefault())
	b.WriteString("</a>\n</section>\n</main>\n")

	b.WriteString("<footer>&copy; ")
	b.WriteString(strconv.Itoa(r.year()))
	b.WriteString(" ")
	b.WriteString(content.Headline)
	b.WriteString("</footer>\n</body>\n</html>\n")

	return b.String()
}

const baseCSS = `*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,-apple-system,"Segoe UI",Roboto,sans-serif;line-height:1.6;color:#1f2937;background:#f9fafb}
.hero{padding:96px 24px;text-align:center;color:#fff}
.hero h1{font-size:2.75rem;margin-bottom:12px}
.subheadline{font-size:1.25rem;opacity:.9}
main{max-width:880px;margin:0 auto;padding:48px 24px}
.feature{display:block;width:100%;max-height:420px;object-fit:cover;border-radius:12px;margin-bottom:40px}
section{margin-bottom:48px}
h2{font-size:1.6rem;margin-bottom:16px}
.services ul{list-style:none;display:grid;grid-template-columns:repeat(auto-fit,minmax(220px,1fr));gap:16px}
.services li{background:#fff;border-radius:10px;padding:20px;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.cta{text-align:center}
.cta a{display:inline-block;color:#fff;text-decoration:none;font-weight:600;padding:14px 36px;border-radius:999px}
footer{text-align:center;padding:32px 24px;color:#6b7280;font-size:.9rem}
`
