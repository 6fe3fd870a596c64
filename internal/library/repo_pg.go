package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"secknow-backend/internal/suggestions"
)

// PGRepo implements Repo using Postgres. Tags are stored as a JSONB array.
type PGRepo struct {
	DB *sql.DB
}

const selectItem = `
SELECT id, workspace_id, kind, name, description, category, tags, content, created_at, updated_at
FROM library_items`

func (r *PGRepo) Create(ctx context.Context, item Item) error {
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO library_items (id, workspace_id, kind, name, description, category, tags, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.DB.ExecContext(ctx, query,
		item.ID,
		item.WorkspaceID,
		string(item.Kind),
		item.Name,
		nullableString(item.Description),
		nullableString(item.Category),
		tags,
		nullableString(item.Content),
		item.CreatedAt,
		item.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, itemID string) (Item, error) {
	item, err := scanItem(r.DB.QueryRowContext(ctx, selectItem+`
WHERE id = $1
LIMIT 1`, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *PGRepo) List(ctx context.Context, workspaceID string, filter ListFilter) ([]Item, error) {
	var sb strings.Builder
	sb.WriteString(selectItem)
	sb.WriteString("\nWHERE workspace_id = $1")
	args := []any{workspaceID}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		fmt.Fprintf(&sb, " AND kind = $%d", len(args))
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		args = append(args, tag)
		fmt.Fprintf(&sb, " AND tags @> jsonb_build_array($%d::text)", len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		fmt.Fprintf(&sb, " AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	sb.WriteString("\nORDER BY kind ASC, name ASC, id ASC")

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetMany(ctx context.Context, workspaceID string, ids []string) (map[string]Item, error) {
	out := make(map[string]Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, workspaceID)
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	query := selectItem + "\nWHERE workspace_id = $1 AND id IN (" + strings.Join(placeholders, ", ") + ")"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[item.ID] = item
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, item Item) error {
	tags, err := encodeTags(item.Tags)
	if err != nil {
		return err
	}
	const query = `
UPDATE library_items
SET name = $1, description = $2, category = $3, tags = $4, content = $5, updated_at = $6
WHERE id = $7`
	res, err := r.DB.ExecContext(ctx, query,
		item.Name,
		nullableString(item.Description),
		nullableString(item.Category),
		tags,
		nullableString(item.Content),
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, itemID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM library_items WHERE id = $1`, itemID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) DeleteByWorkspace(ctx context.Context, workspaceID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM library_items WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var kind string
	var description sql.NullString
	var category sql.NullString
	var content sql.NullString
	var tagsRaw []byte
	if err := row.Scan(
		&item.ID,
		&item.WorkspaceID,
		&kind,
		&item.Name,
		&description,
		&category,
		&tagsRaw,
		&content,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return Item{}, err
	}
	item.Kind = suggestions.Type(kind)
	if description.Valid {
		item.Description = description.String
	}
	if category.Valid {
		item.Category = category.String
	}
	if content.Valid {
		item.Content = content.String
	}
	item.Tags = []string{}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &item.Tags); err != nil {
			return Item{}, fmt.Errorf("decode tags for %s: %w", item.ID, err)
		}
	}
	return item, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
