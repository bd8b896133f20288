package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

// CompanyService resolves extracted company names to canonical company
// records, creating them on first sight.
type CompanyService struct {
	DB *sql.DB
}

func NewCompanyService(db *sql.DB) *CompanyService {
	return &CompanyService{DB: db}
}

// ResolveOrCreate finds the company matching name case-insensitively, or
// creates it. It runs on the caller's transaction so refinement stays
// atomic.
func (s *CompanyService) ResolveOrCreate(ctx context.Context, tx *sql.Tx, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, shared.ValidationError("resolve_company", "company name must not be empty")
	}

	var companyID uuid.UUID
	err := tx.QueryRowContext(ctx, `
		INSERT INTO companies (name)
		VALUES ($1)
		ON CONFLICT ((lower(name))) DO UPDATE SET name = companies.name
		RETURNING id
	`, name).Scan(&companyID)
	if err != nil {
		return uuid.Nil, shared.DatabaseError("resolve_company", err)
	}

	logrus.WithFields(logrus.Fields{
		"company_id":   companyID,
		"company_name": name,
	}).Debug("Resolved company")

	return companyID, nil
}
