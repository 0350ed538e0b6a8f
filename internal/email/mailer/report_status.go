// internal/email/mailer/report_status.go
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dangerclosesec/portal/internal/email"
	"github.com/dangerclosesec/portal/internal/model"
)

const reportStatusTemplate = "report_status"

// Sender is satisfied by *email.Service.
type Sender interface {
	SendEmail(ctx context.Context, data email.EmailData) error
}

// ReportStatusTemplateData contains data for the report status template
type ReportStatusTemplateData struct {
	RecipientName    string
	Title            string
	OrganizationName string
	Headline         string
	Status           string
	SubmissionDate   string
	DueDate          string
	Link             string
}

// ReportStatusMailer tells submitters when their report changes status.
type ReportStatusMailer struct {
	sender   Sender
	fromName string
	baseURL  string
}

func NewReportStatusMailer(sender Sender, baseURL string) *ReportStatusMailer {
	return &ReportStatusMailer{
		sender:   sender,
		fromName: "Report Portal",
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// ReportStatusChanged mails the submitter of report. Reports without a
// loaded submitter e-mail are skipped.
func (m *ReportStatusMailer) ReportStatusChanged(ctx context.Context, report *model.Report, action model.ReportAction) error {
	if report.Submitter == nil || report.Submitter.Email == "" {
		return nil
	}

	headline, ok := headlines[action]
	if !ok {
		return nil
	}

	data := ReportStatusTemplateData{
		RecipientName:  report.Submitter.Name,
		Title:          report.Title,
		Headline:       headline,
		Status:         statusLabel(report.Status),
		SubmissionDate: report.SubmissionDate.String(),
		DueDate:        report.DueDate.String(),
	}
	if report.Organization != nil {
		data.OrganizationName = report.Organization.Name
	}
	if m.baseURL != "" {
		data.Link = fmt.Sprintf("%s/reports/%d", m.baseURL, report.ID)
	}

	return m.sender.SendEmail(ctx, email.EmailData{
		To:           report.Submitter.Email,
		FromName:     m.fromName,
		Subject:      fmt.Sprintf("Report %q %s", report.Title, headline),
		TemplateName: reportStatusTemplate,
		TemplateData: data,
	})
}

var headlines = map[model.ReportAction]string{
	model.ActionApproveInternal: "was approved internally",
	model.ActionApproveParent:   "received final approval",
	model.ActionReject:          "was rejected",
	model.ActionMarkOverdue:     "is overdue",
}

func statusLabel(s model.ReportStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}
