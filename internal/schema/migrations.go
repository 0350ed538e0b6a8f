package schema

import (
	"fmt"
	"strings"

	"github.com/dangerclosesec/portal/internal/model"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns every schema step in version order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "organizations, users and reports",
			SQL: fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS organizations (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		parent_id INTEGER REFERENCES organizations(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT organizations_not_own_parent CHECK (parent_id IS NULL OR parent_id <> id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		username TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		organization_id INTEGER REFERENCES organizations(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email),
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_role_check CHECK (role IN (%s))
	);

	CREATE TABLE IF NOT EXISTS reports (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		organization_id INTEGER NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		submitted_by INTEGER NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		status TEXT NOT NULL DEFAULT '%s',
		due_date DATE NOT NULL,
		submission_date DATE NOT NULL DEFAULT CURRENT_DATE,
		internal_approver_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		lga_approver_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT reports_status_check CHECK (status IN (%s))
	);

	CREATE INDEX IF NOT EXISTS idx_organizations_parent ON organizations(parent_id);
	CREATE INDEX IF NOT EXISTS idx_users_organization ON users(organization_id);
	CREATE INDEX IF NOT EXISTS idx_reports_organization ON reports(organization_id);
	CREATE INDEX IF NOT EXISTS idx_reports_submitted_by ON reports(submitted_by);
	CREATE INDEX IF NOT EXISTS idx_reports_submission ON reports(submission_date DESC, id DESC);
	`, quoteList(roleValues()), model.StatusPendingInternal, quoteList(statusValues())),
		},
		{
			Version:     2,
			Description: "report history",
			SQL: `
	CREATE TABLE IF NOT EXISTS report_events (
		id UUID PRIMARY KEY,
		report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		action TEXT NOT NULL,
		from_status TEXT,
		to_status TEXT NOT NULL,
		actor_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		request_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_report_events_report ON report_events(report_id, created_at);
	`,
		},
		{
			Version:     3,
			Description: "overdue sweep lookup",
			SQL: `
	CREATE INDEX IF NOT EXISTS idx_reports_pending_due ON reports(due_date) WHERE status = 'pending_internal';
	`,
		},
	}
}

func roleValues() []string {
	out := make([]string, 0, len(model.Roles))
	for _, r := range model.Roles {
		out = append(out, string(r))
	}
	return out
}

func statusValues() []string {
	out := make([]string, 0, len(model.ReportStatuses))
	for _, s := range model.ReportStatuses {
		out = append(out, string(s))
	}
	return out
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}
