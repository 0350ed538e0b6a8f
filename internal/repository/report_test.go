package repository

import (
	"testing"

	"github.com/dangerclosesec/portal/internal/domain"
	"github.com/dangerclosesec/portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB builds a gorm handle that renders SQL without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=portal dbname=portal sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func visibleSQL(db *gorm.DB, viewer model.Viewer) string {
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var reports []model.Report
		return tx.Model(&model.Report{}).Scopes(visibleTo(viewer)).Find(&reports)
	})
}

func orgID(v uint) *uint { return &v }

func TestVisibleTo(t *testing.T) {
	db := dryRunDB(t)

	t.Run("admin sees every report", func(t *testing.T) {
		sql := visibleSQL(db, model.Viewer{UserID: 1, Role: model.RoleAdmin})
		assert.NotContains(t, sql, "WHERE")
	})

	t.Run("submitter sees own submissions", func(t *testing.T) {
		sql := visibleSQL(db, model.Viewer{UserID: 42, Role: model.RoleSubmitter, OrganizationID: orgID(3)})
		assert.Contains(t, sql, "reports.submitted_by = 42")
		assert.NotContains(t, sql, "organization_id")
	})

	t.Run("internal approver sees own organization", func(t *testing.T) {
		sql := visibleSQL(db, model.Viewer{UserID: 5, Role: model.RoleInternalApprover, OrganizationID: orgID(3)})
		assert.Contains(t, sql, "reports.organization_id = 3")
		assert.NotContains(t, sql, "parent_id")
	})

	t.Run("lga approver sees child organizations", func(t *testing.T) {
		sql := visibleSQL(db, model.Viewer{UserID: 6, Role: model.RoleLGAApprover, OrganizationID: orgID(1)})
		assert.Contains(t, sql, "reports.organization_id IN (SELECT")
		assert.Contains(t, sql, `FROM "organizations" WHERE parent_id = 1)`)
	})

	t.Run("approver without organization sees nothing", func(t *testing.T) {
		for _, role := range []model.Role{model.RoleInternalApprover, model.RoleLGAApprover} {
			sql := visibleSQL(db, model.Viewer{UserID: 6, Role: role})
			assert.Contains(t, sql, "1 = 0", role)
		}
	})

	t.Run("unknown role sees nothing", func(t *testing.T) {
		sql := visibleSQL(db, model.Viewer{UserID: 6, Role: model.Role("auditor")})
		assert.Contains(t, sql, "1 = 0")
	})
}

func TestSubmitterForShare(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var submitter model.User
		return submitterForShare(tx, 7).First(&submitter)
	})

	assert.Contains(t, sql, `FROM "users"`)
	assert.Contains(t, sql, "id = 7")
	assert.Contains(t, sql, "organization_id")
	assert.Contains(t, sql, "FOR SHARE")
}

func TestVisibleForUpdate(t *testing.T) {
	db := dryRunDB(t)

	lockSQL := func(viewer model.Viewer) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			var report model.Report
			return visibleForUpdate(tx, viewer, 9).First(&report)
		})
	}

	t.Run("lga approver lock keeps the child organization filter", func(t *testing.T) {
		sql := lockSQL(model.Viewer{UserID: 6, Role: model.RoleLGAApprover, OrganizationID: orgID(1)})
		assert.Contains(t, sql, "reports.id = 9")
		assert.Contains(t, sql, `FROM "organizations" WHERE parent_id = 1)`)
		assert.Contains(t, sql, `FOR UPDATE OF "reports"`)
	})

	t.Run("submitter lock is limited to own reports", func(t *testing.T) {
		sql := lockSQL(model.Viewer{UserID: 42, Role: model.RoleSubmitter})
		assert.Contains(t, sql, "reports.submitted_by = 42")
		assert.Contains(t, sql, `FOR UPDATE OF "reports"`)
	})
}

func TestOverdueCandidates(t *testing.T) {
	db := dryRunDB(t)
	today, err := model.ParseDate("2025-10-20")
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var reports []*model.Report
		return overdueCandidates(tx, today).Find(&reports)
	})

	assert.Contains(t, sql, "status = 'pending_internal'")
	assert.Contains(t, sql, "due_date < '2025-10-20'")
	assert.NotContains(t, sql, "'overdue'")
	assert.Contains(t, sql, "FOR UPDATE SKIP LOCKED")
}

func TestApplyAction(t *testing.T) {
	actor := uint(5)

	t.Run("internal approval moves the status", func(t *testing.T) {
		report := &model.Report{Status: model.StatusPendingInternal}
		from, changed, err := applyAction(report, model.ActionApproveInternal, &actor)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, model.StatusPendingInternal, from)
		assert.Equal(t, model.StatusInternallyApproved, report.Status)
		assert.Equal(t, &actor, report.InternalApproverID)
	})

	t.Run("repeated reject is not a change", func(t *testing.T) {
		report := &model.Report{Status: model.StatusRejected}
		from, changed, err := applyAction(report, model.ActionReject, &actor)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, model.StatusRejected, from)
		assert.Equal(t, model.StatusRejected, report.Status)
	})

	t.Run("invalid transition leaves the report alone", func(t *testing.T) {
		report := &model.Report{Status: model.StatusApproved}
		_, changed, err := applyAction(report, model.ActionReject, &actor)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.False(t, changed)
		assert.Equal(t, model.StatusApproved, report.Status)
	})
}
