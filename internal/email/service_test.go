package email

import (
	"strings"
	"testing"

	"github.com/dangerclosesec/portal/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesRender(t *testing.T) {
	s, err := NewEmailService(&config.Config{}, ProviderSMTP)
	require.NoError(t, err)
	require.Contains(t, s.Templates, "report_status")

	data := map[string]string{
		"RecipientName":    "John <admin>",
		"Title":            "Q3 report",
		"OrganizationName": "Ikeja Health Department",
		"Headline":         "was rejected",
		"Status":           "rejected",
		"SubmissionDate":   "2025-10-01",
		"DueDate":          "2025-10-25",
		"Link":             "",
	}

	html, text, err := s.renderTemplate("report_status", data)
	require.NoError(t, err)

	assert.Contains(t, html, "John &lt;admin&gt;")
	assert.Contains(t, text, "John <admin>")
	assert.Contains(t, text, "Due:       2025-10-25")
	assert.NotContains(t, text, "View the report")

	_, _, err = s.renderTemplate("missing", data)
	assert.Error(t, err)
}

func TestProviderFor(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, ProviderSMTP, ProviderFor(cfg))

	cfg.Sendgrid.APIKey = "SG.key"
	assert.Equal(t, ProviderSendgrid, ProviderFor(cfg))
}

func TestSMTPRequiresSender(t *testing.T) {
	s, err := NewEmailService(&config.Config{}, ProviderSMTP)
	require.NoError(t, err)

	err = s.SendEmail(t.Context(), EmailData{To: "john@example.gov", TemplateName: "report_status", TemplateData: map[string]string{}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "From"))
}

func TestBuildMIMEMessage(t *testing.T) {
	msg := string(buildMIMEMessage(EmailData{
		To:       "john@example.gov",
		From:     "portal@example.gov",
		FromName: "Report Portal",
		Subject:  "Status",
	}, "<p>hi</p>", "hi"))

	assert.Contains(t, msg, "From: Report Portal <portal@example.gov>\r\n")
	assert.Contains(t, msg, "multipart/alternative")
	assert.Contains(t, msg, "text/html; charset=utf-8")
}
