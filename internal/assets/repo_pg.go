package assets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. Association ids and tags are JSONB arrays.
type PGRepo struct {
	DB *sql.DB
}

const selectAsset = `
SELECT id, workspace_id, program_id, name, type, target, technology_ids, functionality_ids, behavior_ids, tags, created_at, updated_at
FROM assets`

func (r *PGRepo) Create(ctx context.Context, a Asset) error {
	lists, err := encodeLists(a)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO assets (id, workspace_id, program_id, name, type, target, technology_ids, functionality_ids, behavior_ids, tags, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.DB.ExecContext(ctx, query,
		a.ID,
		a.WorkspaceID,
		nullableString(a.ProgramID),
		a.Name,
		string(a.Type),
		nullableString(a.Target),
		lists[0],
		lists[1],
		lists[2],
		lists[3],
		a.CreatedAt,
		a.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, assetID string) (Asset, error) {
	a, err := scanAsset(r.DB.QueryRowContext(ctx, selectAsset+`
WHERE id = $1
LIMIT 1`, assetID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Asset{}, ErrNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

func (r *PGRepo) List(ctx context.Context, workspaceID, programID string) ([]Asset, error) {
	if programID == "" {
		return r.query(ctx, selectAsset+`
WHERE workspace_id = $1
ORDER BY name ASC, id ASC`, workspaceID)
	}
	return r.query(ctx, selectAsset+`
WHERE workspace_id = $1 AND program_id = $2
ORDER BY name ASC, id ASC`, workspaceID, programID)
}

func (r *PGRepo) Update(ctx context.Context, a Asset) error {
	lists, err := encodeLists(a)
	if err != nil {
		return err
	}
	const query = `
UPDATE assets
SET program_id = $1, name = $2, type = $3, target = $4, technology_ids = $5, functionality_ids = $6, behavior_ids = $7, tags = $8, updated_at = $9
WHERE id = $10`
	res, err := r.DB.ExecContext(ctx, query,
		nullableString(a.ProgramID),
		a.Name,
		string(a.Type),
		nullableString(a.Target),
		lists[0],
		lists[1],
		lists[2],
		lists[3],
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, assetID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, assetID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) DeleteByWorkspace(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `DELETE FROM assets WHERE workspace_id = $1 RETURNING id`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	removed := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		removed = append(removed, id)
	}
	return removed, rows.Err()
}

func (r *PGRepo) ClearProgram(ctx context.Context, programID string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE assets SET program_id = NULL, updated_at = now() WHERE program_id = $1`, programID)
	return err
}

func (r *PGRepo) ListReferencing(ctx context.Context, workspaceID, itemID string) ([]Asset, error) {
	return r.query(ctx, selectAsset+`
WHERE workspace_id = $1
  AND (technology_ids @> jsonb_build_array($2::text)
    OR functionality_ids @> jsonb_build_array($2::text)
    OR behavior_ids @> jsonb_build_array($2::text))
ORDER BY name ASC, id ASC`, workspaceID, itemID)
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Asset, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (Asset, error) {
	var a Asset
	var programID sql.NullString
	var assetType string
	var target sql.NullString
	var techRaw, funcRaw, behaviorRaw, tagsRaw []byte
	if err := row.Scan(
		&a.ID,
		&a.WorkspaceID,
		&programID,
		&a.Name,
		&assetType,
		&target,
		&techRaw,
		&funcRaw,
		&behaviorRaw,
		&tagsRaw,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return Asset{}, err
	}
	if programID.Valid {
		a.ProgramID = programID.String
	}
	if target.Valid {
		a.Target = target.String
	}
	a.Type = AssetType(assetType)

	var err error
	if a.TechnologyIDs, err = decodeList(techRaw); err != nil {
		return Asset{}, fmt.Errorf("decode technology_ids for %s: %w", a.ID, err)
	}
	if a.FunctionalityIDs, err = decodeList(funcRaw); err != nil {
		return Asset{}, fmt.Errorf("decode functionality_ids for %s: %w", a.ID, err)
	}
	if a.BehaviorIDs, err = decodeList(behaviorRaw); err != nil {
		return Asset{}, fmt.Errorf("decode behavior_ids for %s: %w", a.ID, err)
	}
	if a.Tags, err = decodeList(tagsRaw); err != nil {
		return Asset{}, fmt.Errorf("decode tags for %s: %w", a.ID, err)
	}
	return a, nil
}

func encodeLists(a Asset) ([4][]byte, error) {
	var out [4][]byte
	for i, list := range [][]string{a.TechnologyIDs, a.FunctionalityIDs, a.BehaviorIDs, a.Tags} {
		if list == nil {
			list = []string{}
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return out, err
		}
		out[i] = raw
	}
	return out, nil
}

func decodeList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
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
