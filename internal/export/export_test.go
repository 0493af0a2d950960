package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/brandsight/rfpd/internal/errors"
	"github.com/brandsight/rfpd/internal/project"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	f, err = ParseFormat("DOC")
	require.NoError(t, err)
	assert.Equal(t, FormatDOC, f)

	_, err = ParseFormat("xlsx")
	assert.True(t, apperrors.IsInvalidInput(err))
	_, err = ParseFormat("")
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/html", ContentType(FormatPDF))
	assert.Equal(t, "application/msword", ContentType(FormatDOC))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Enterprise_Cloud_Migration.pdf", FileName("Enterprise Cloud Migration", FormatPDF))
	assert.Equal(t, "Q3_Network_RFP_v2_.doc", FileName("Q3 Network RFP (v2)", FormatDOC))
}

func TestRender_WithAnalysis(t *testing.T) {
	p := &project.Project{
		Title:          "Enterprise Cloud Migration",
		SourceFileName: "cloud.pdf",
		Analysis: &project.Analysis{
			RolesAndEfforts: map[string]int{
				"Developer":       320,
				"Project Manager": 120,
			},
			Purpose:      "Migrate workloads.",
			ScopeOfWork:  "All regions.",
			PaymentTerms: "Net 45.",
		},
	}

	body := string(Render(p))
	assert.Contains(t, body, "<h1 style=\"font-family: Arial;\">Enterprise Cloud Migration</h1>")
	assert.Contains(t, body, "<strong>File:</strong> cloud.pdf")
	assert.Contains(t, body, "Effort Summary")
	assert.Contains(t, body, "<li>Developer: 320 hrs</li>")
	assert.Contains(t, body, "<h2>Purpose</h2><p>Migrate workloads.</p>")
	assert.Contains(t, body, "<h2>Payment Terms</h2><p>Net 45.</p>")
	assert.NotContains(t, body, "Key Requirements")

	// Roles are listed alphabetically for a stable document.
	assert.Less(t, strings.Index(body, "Developer"), strings.Index(body, "Project Manager"))
}

func TestRender_WithoutAnalysis(t *testing.T) {
	p := &project.Project{Title: "Pending RFP", SourceFileName: "pending.pdf"}

	body := string(Render(p))
	assert.Contains(t, body, "Analysis not available yet.")
	assert.NotContains(t, body, "Effort Summary")
}

func TestRender_EscapesHTML(t *testing.T) {
	p := &project.Project{
		Title:          `Bid <script>alert("x")</script>`,
		SourceFileName: "bid.pdf",
	}

	body := string(Render(p))
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}
