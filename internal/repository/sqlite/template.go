package sqlite

import (
	"context"
	"database/sql"

	"github.com/garnizeh/hnjobs/pkg/models"
)

func (r *SQLiteRepo) GetTemplate(ctx context.Context, name, version string) (*models.Template, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, version, template_text, schema_version, metadata, created, updated FROM prompt_templates WHERE name = ? AND version = ?`, name, version)
	var t models.Template
	var schemaVer, metadata sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.Version, &t.TemplateTxt, &schemaVer, &metadata, &t.Created, &t.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if schemaVer.Valid {
		t.SchemaVer = &schemaVer.String
	}
	if metadata.Valid {
		t.Metadata = &metadata.String
	}

	return &t, nil
}
