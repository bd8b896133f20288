package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/communityhq/opportunity-board/models"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

// TagService manages the fixed catalog of opportunity tags.
type TagService struct {
	DB *sql.DB
}

func NewTagService(db *sql.DB) *TagService {
	return &TagService{DB: db}
}

// ListTags returns all catalog tags sorted by name.
func (s *TagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, color, created_at
		FROM opportunity_tags
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, shared.DatabaseError("list_tags", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, shared.DatabaseError("list_tags", err)
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// CreateTag adds a tag to the catalog. The color must come from the fixed
// palette; duplicate names conflict.
func (s *TagService) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ValidationError("create_tag", "tag name is required")
	}
	if !models.ValidTagColor(color) {
		return nil, shared.ValidationError("create_tag", "tag color must be one of the palette colors")
	}

	var tag models.Tag
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO opportunity_tags (name, color)
		VALUES ($1, $2)
		RETURNING id, name, color, created_at
	`, name, color).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ConflictError("create_tag", "a tag with this name already exists")
		}
		return nil, shared.DatabaseError("create_tag", err)
	}

	logrus.WithFields(logrus.Fields{
		"tag_id":   tag.ID,
		"tag_name": tag.Name,
	}).Info("Created catalog tag")

	return &tag, nil
}

// ResolveNames matches extracted tag names against the catalog
// case-insensitively. Unmatched names are dropped, never auto-created.
func (s *TagService) ResolveNames(ctx context.Context, names []string) ([]uuid.UUID, error) {
	return resolveTagNames(ctx, s.DB, names)
}

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// resolveTagNames is the shared catalog lookup; q may be a transaction so
// the enrichment pipeline can resolve inside its refinement transaction.
func resolveTagNames(ctx context.Context, q rowQuerier, names []string) ([]uuid.UUID, error) {
	lowered := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			lowered = append(lowered, strings.ToLower(name))
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id FROM opportunity_tags WHERE lower(name) = ANY($1)
	`, pq.Array(lowered))
	if err != nil {
		return nil, shared.DatabaseError("resolve_tag_names", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, shared.DatabaseError("resolve_tag_names", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
