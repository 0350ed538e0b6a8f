package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Hasher turns a plaintext password into a storable hash.
type Hasher interface {
	Hash(password string) (string, error)
}

type SeedOrganization struct {
	Name   string
	Type   string
	Parent string
}

type SeedUser struct {
	Name         string
	Email        string
	Username     string
	Password     string
	Role         string
	Organization string
}

// DefaultOrganizations is the council / department tree used for local
// development. Parents are listed before their children.
var DefaultOrganizations = []SeedOrganization{
	{Name: "Ikeja LGA", Type: "LGA"},
	{Name: "Epe LGA", Type: "LGA"},
	{Name: "Ikeja Health Department", Type: "Department", Parent: "Ikeja LGA"},
	{Name: "Ikeja Education Department", Type: "Department", Parent: "Ikeja LGA"},
	{Name: "Epe Health Department", Type: "Department", Parent: "Epe LGA"},
}

var DefaultUsers = []SeedUser{
	{Name: "System Administrator", Email: "admin@portal.local", Username: "admin", Password: "admin123", Role: "admin"},
	{Name: "John Doe", Email: "john@portal.local", Username: "john", Password: "password123", Role: "submitter", Organization: "Ikeja Health Department"},
	{Name: "Sarah Johnson", Email: "sarah@portal.local", Username: "sarah", Password: "password123", Role: "internal_approver", Organization: "Ikeja Health Department"},
	{Name: "Mike Adebayo", Email: "mike@portal.local", Username: "mike", Password: "password123", Role: "lga_approver", Organization: "Ikeja LGA"},
	{Name: "Grace Okafor", Email: "grace@portal.local", Username: "grace", Password: "password123", Role: "submitter", Organization: "Epe Health Department"},
}

// Seed inserts orgs and users that are not present yet. Existing rows are
// left untouched so the command can be re-run.
func (m *Migrator) Seed(ctx context.Context, hasher Hasher, orgs []SeedOrganization, users []SeedUser) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make(map[string]int64, len(orgs))
	for _, org := range orgs {
		var parent sql.NullInt64
		if org.Parent != "" {
			id, ok := ids[org.Parent]
			if !ok {
				return fmt.Errorf("organization %q: unknown parent %q", org.Name, org.Parent)
			}
			parent = sql.NullInt64{Int64: id, Valid: true}
		}

		id, err := upsertOrganization(ctx, tx, org, parent)
		if err != nil {
			return err
		}
		ids[org.Name] = id
	}

	for _, u := range users {
		var orgID sql.NullInt64
		if u.Organization != "" {
			id, ok := ids[u.Organization]
			if !ok {
				return fmt.Errorf("user %q: unknown organization %q", u.Username, u.Organization)
			}
			orgID = sql.NullInt64{Int64: id, Valid: true}
		}

		hash, err := hasher.Hash(u.Password)
		if err != nil {
			return fmt.Errorf("hashing password for %q: %w", u.Username, err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (name, email, username, password_hash, role, organization_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT DO NOTHING
		`, u.Name, u.Email, u.Username, hash, u.Role, orgID)
		if err != nil {
			return fmt.Errorf("seeding user %q: %w", u.Username, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			m.logger.Info("seeded user", "username", u.Username, "role", u.Role)
		}
	}

	return tx.Commit()
}

func upsertOrganization(ctx context.Context, tx *sql.Tx, org SeedOrganization, parent sql.NullInt64) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM organizations WHERE name = $1 ORDER BY id LIMIT 1`, org.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up organization %q: %w", org.Name, err)
	}

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO organizations (name, type, parent_id) VALUES ($1, $2, $3) RETURNING id
	`, org.Name, org.Type, parent).Scan(&id); err != nil {
		return 0, fmt.Errorf("seeding organization %q: %w", org.Name, err)
	}

	return id, nil
}
