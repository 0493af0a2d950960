// Package export renders the downloadable project summary document.
//
// Both the pdf and doc variants serve the same generated markup; only
// the content label differs. Genuine binary formats are a deliberate
// non-feature.
package export

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	apperrors "github.com/brandsight/rfpd/internal/errors"
	"github.com/brandsight/rfpd/internal/project"
)

// Format is a requested summary download format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatDOC Format = "doc"
)

// ParseFormat validates a requested format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatDOC:
		return FormatDOC, nil
	default:
		return "", apperrors.Invalidf("unsupported summary format %q", s)
	}
}

// ContentType returns the content label served for a format. The doc
// branch labels the markup as msword; the payload is identical.
func ContentType(f Format) string {
	if f == FormatDOC {
		return "application/msword"
	}
	return "text/html"
}

var unsafeRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// FileName builds the download name from the sanitized project title and
// the requested extension.
func FileName(title string, f Format) string {
	base := unsafeRe.ReplaceAllString(title, "_")
	return fmt.Sprintf("%s.%s", base, f)
}

// Render produces the self-contained summary document for a project,
// or a placeholder body when the analysis is not attached yet.
func Render(p *project.Project) []byte {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"></head><body>`)
	fmt.Fprintf(&b, `<h1 style="font-family: Arial;">%s</h1>`+"\n", html.EscapeString(p.Title))
	fmt.Fprintf(&b, "<p><strong>File:</strong> %s</p>\n", html.EscapeString(p.SourceFileName))

	if a := p.Analysis; a != nil {
		b.WriteString("<h2>Effort Summary</h2>\n<ul>\n")
		for _, role := range sortedRoles(a.RolesAndEfforts) {
			fmt.Fprintf(&b, "<li>%s: %d hrs</li>\n", html.EscapeString(role), a.RolesAndEfforts[role])
		}
		b.WriteString("</ul>\n")
		writeSection(&b, "Purpose", a.Purpose)
		writeSection(&b, "Scope of Work", a.ScopeOfWork)
		writeSection(&b, "Payment Terms", a.PaymentTerms)
		writeSection(&b, "Key Requirements", a.KeyRequirements)
	} else {
		b.WriteString("<p>Analysis not available yet.</p>\n")
	}

	b.WriteString("</body></html>")
	return []byte(b.String())
}

func writeSection(b *strings.Builder, heading, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "<h2>%s</h2><p>%s</p>\n", heading, html.EscapeString(body))
}

func sortedRoles(roles map[string]int) []string {
	keys := make([]string, 0, len(roles))
	for k := range roles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
