package workspaces

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) CreateWorkspace(ctx context.Context, ws Workspace) error {
	const query = `
INSERT INTO workspaces (id, owner_id, name, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query,
		ws.ID,
		ws.OwnerID,
		ws.Name,
		nullableString(ws.Description),
		ws.CreatedAt,
		ws.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetWorkspace(ctx context.Context, ownerID, workspaceID string) (Workspace, error) {
	const query = `
SELECT id, owner_id, name, description, created_at, updated_at
FROM workspaces
WHERE id = $1 AND owner_id = $2
LIMIT 1`
	ws, err := scanWorkspace(r.DB.QueryRowContext(ctx, query, workspaceID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Workspace{}, ErrNotFound
		}
		return Workspace{}, err
	}
	return ws, nil
}

func (r *PGRepo) ListWorkspaces(ctx context.Context, ownerID string) ([]Workspace, error) {
	const query = `
SELECT id, owner_id, name, description, created_at, updated_at
FROM workspaces
WHERE owner_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Workspace, 0)
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateWorkspace(ctx context.Context, ws Workspace) error {
	const query = `
UPDATE workspaces
SET name = $1, description = $2, updated_at = $3
WHERE id = $4 AND owner_id = $5`
	res, err := r.DB.ExecContext(ctx, query,
		ws.Name,
		nullableString(ws.Description),
		ws.UpdatedAt,
		ws.ID,
		ws.OwnerID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// DeleteWorkspace relies on ON DELETE CASCADE for programs, assets and library items.
func (r *PGRepo) DeleteWorkspace(ctx context.Context, ownerID, workspaceID string) error {
	const query = `DELETE FROM workspaces WHERE id = $1 AND owner_id = $2`
	res, err := r.DB.ExecContext(ctx, query, workspaceID, ownerID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) CreateProgram(ctx context.Context, p Program) error {
	const query = `
INSERT INTO programs (id, workspace_id, name, platform, scope_notes, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		p.ID,
		p.WorkspaceID,
		p.Name,
		nullableString(p.Platform),
		nullableString(p.ScopeNotes),
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetProgram(ctx context.Context, programID string) (Program, error) {
	const query = `
SELECT id, workspace_id, name, platform, scope_notes, status, created_at, updated_at
FROM programs
WHERE id = $1
LIMIT 1`
	p, err := scanProgram(r.DB.QueryRowContext(ctx, query, programID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Program{}, ErrNotFound
		}
		return Program{}, err
	}
	return p, nil
}

func (r *PGRepo) ListPrograms(ctx context.Context, workspaceID string) ([]Program, error) {
	const query = `
SELECT id, workspace_id, name, platform, scope_notes, status, created_at, updated_at
FROM programs
WHERE workspace_id = $1
ORDER BY name ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Program, 0)
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateProgram(ctx context.Context, p Program) error {
	const query = `
UPDATE programs
SET name = $1, platform = $2, scope_notes = $3, status = $4, updated_at = $5
WHERE id = $6`
	res, err := r.DB.ExecContext(ctx, query,
		p.Name,
		nullableString(p.Platform),
		nullableString(p.ScopeNotes),
		string(p.Status),
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// DeleteProgram relies on ON DELETE SET NULL for assets.program_id.
func (r *PGRepo) DeleteProgram(ctx context.Context, programID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM programs WHERE id = $1`, programID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE workspaces
SET owner_id = $1, updated_at = now()
WHERE owner_id = $2`
	res, err := r.DB.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row rowScanner) (Workspace, error) {
	var ws Workspace
	var description sql.NullString
	if err := row.Scan(
		&ws.ID,
		&ws.OwnerID,
		&ws.Name,
		&description,
		&ws.CreatedAt,
		&ws.UpdatedAt,
	); err != nil {
		return Workspace{}, err
	}
	if description.Valid {
		ws.Description = description.String
	}
	return ws, nil
}

func scanProgram(row rowScanner) (Program, error) {
	var p Program
	var platform sql.NullString
	var scopeNotes sql.NullString
	var status string
	if err := row.Scan(
		&p.ID,
		&p.WorkspaceID,
		&p.Name,
		&platform,
		&scopeNotes,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return Program{}, err
	}
	if platform.Valid {
		p.Platform = platform.String
	}
	if scopeNotes.Valid {
		p.ScopeNotes = scopeNotes.String
	}
	p.Status = ProgramStatus(status)
	return p, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
