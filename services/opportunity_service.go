package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/communityhq/opportunity-board/models"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

// OpportunityService owns storage for opportunities and their associated
// tags, bookmarks, and reports. The enrichment pipeline and the moderation
// engine mutate exclusively through its operations.
type OpportunityService struct {
	DB      *sql.DB
	metrics *shared.ServiceMetrics
}

func NewOpportunityService(db *sql.DB) *OpportunityService {
	return &OpportunityService{
		DB:      db,
		metrics: shared.NewServiceMetrics("opportunity-store"),
	}
}

const opportunityColumns = `id, link, title, description, company_id, posted_by, created_at,
	expires_at, last_expiration_check, refined_at, slack_channel_id, slack_message_id`

func scanOpportunity(row interface{ Scan(...interface{}) error }) (*models.Opportunity, error) {
	var o models.Opportunity
	err := row.Scan(
		&o.ID, &o.Link, &o.Title, &o.Description, &o.CompanyID, &o.PostedBy, &o.CreatedAt,
		&o.ExpiresAt, &o.LastExpirationCheck, &o.RefinedAt, &o.SlackChannelID, &o.SlackMessageID,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreatePlaceholder inserts a minimally-valid opportunity so the poster has
// an editable record before any enrichment runs. A live opportunity with the
// same link (case-insensitive) yields a conflict.
func (s *OpportunityService) CreatePlaceholder(ctx context.Context, link string, posterID uuid.UUID) (*models.Opportunity, error) {
	query := fmt.Sprintf(`
		INSERT INTO opportunities (link, title, description, posted_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, opportunityColumns)

	opportunity, err := scanOpportunity(s.DB.QueryRowContext(ctx, query,
		link, models.DefaultTitle, models.DefaultDescription, posterID, time.Now().Add(models.DefaultExpiryWindow)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ConflictError("create_placeholder", "an opportunity with this link already exists")
		}
		return nil, shared.DatabaseError("create_placeholder", err)
	}

	logrus.WithFields(logrus.Fields{
		"opportunity_id": opportunity.ID,
		"posted_by":      posterID,
	}).Info("Created placeholder opportunity")

	return opportunity, nil
}

// UpsertFromSlack inserts a chat-sourced placeholder keyed on the
// (channel, message) pair, returning the row id on both the insert and the
// conflict branch.
func (s *OpportunityService) UpsertFromSlack(ctx context.Context, channelID, messageID, link string, posterID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO opportunities (link, title, description, posted_by, expires_at, slack_channel_id, slack_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slack_channel_id, slack_message_id)
			WHERE slack_channel_id IS NOT NULL AND slack_message_id IS NOT NULL
			DO UPDATE SET link = EXCLUDED.link
		RETURNING id
	`, link, models.DefaultTitle, models.DefaultDescription, posterID,
		time.Now().Add(models.DefaultExpiryWindow), channelID, messageID).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			// Same link posted from a different message.
			return uuid.Nil, shared.ConflictError("upsert_from_slack", "an opportunity with this link already exists")
		}
		return uuid.Nil, shared.DatabaseError("upsert_from_slack", err)
	}

	return id, nil
}

// FindByLink returns the opportunity matching link case-insensitively, or
// nil when none exists.
func (s *OpportunityService) FindByLink(ctx context.Context, link string) (*models.Opportunity, error) {
	query := fmt.Sprintf(`SELECT %s FROM opportunities WHERE lower(link) = lower($1)`, opportunityColumns)

	opportunity, err := scanOpportunity(s.DB.QueryRowContext(ctx, query, link))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shared.DatabaseError("find_by_link", err)
	}
	return opportunity, nil
}

// GetByID returns the opportunity, or nil when it does not exist.
func (s *OpportunityService) GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	query := fmt.Sprintf(`SELECT %s FROM opportunities WHERE id = $1`, opportunityColumns)

	opportunity, err := scanOpportunity(s.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shared.DatabaseError("get_by_id", err)
	}
	return opportunity, nil
}

// GetSlackMessage returns the mirrored chat message, or nil when it is
// unknown (deleted messages disappear from the mirror).
func (s *OpportunityService) GetSlackMessage(ctx context.Context, channelID, messageID string) (*models.SlackMessage, error) {
	var message models.SlackMessage
	err := s.DB.QueryRowContext(ctx, `
		SELECT channel_id, message_id, user_id, text, created_at
		FROM slack_messages
		WHERE channel_id = $1 AND message_id = $2
	`, channelID, messageID).Scan(&message.ChannelID, &message.MessageID, &message.UserID, &message.Text, &message.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shared.DatabaseError("get_slack_message", err)
	}
	return &message, nil
}

// UsableExtraction is AI output confident enough to apply: title and
// description are always present; the rest is optional.
type UsableExtraction struct {
	Company     *string
	Title       string
	Description string
	ExpiresAt   *time.Time
	Tags        []string
}

// ApplyRefinement applies a usable extraction in one transaction: company
// resolution, field updates, the refined-at stamp, and idempotent tag
// associations either all persist or none do. It reports whether this was
// the opportunity's first successful refinement.
func (s *OpportunityService) ApplyRefinement(ctx context.Context, opportunityID uuid.UUID, extraction UsableExtraction, resolver CompanyResolver) (bool, error) {
	startTime := time.Now()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, shared.DatabaseError("apply_refinement", err)
	}
	defer tx.Rollback()

	var refinedAt *time.Time
	err = tx.QueryRowContext(ctx, `SELECT refined_at FROM opportunities WHERE id = $1 FOR UPDATE`, opportunityID).Scan(&refinedAt)
	if err == sql.ErrNoRows {
		return false, shared.NotFoundError("apply_refinement", "opportunity not found")
	}
	if err != nil {
		return false, shared.DatabaseError("apply_refinement", err)
	}
	firstRefinement := refinedAt == nil

	var companyID *uuid.UUID
	if extraction.Company != nil && strings.TrimSpace(*extraction.Company) != "" {
		resolved, err := resolver.ResolveOrCreate(ctx, tx, *extraction.Company)
		if err != nil {
			return false, err
		}
		companyID = &resolved
	}

	// A null extracted expiry means "never expires": the stored expiry is
	// left untouched rather than overwritten.
	if extraction.ExpiresAt != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE opportunities
			SET title = $2, description = $3, company_id = COALESCE($4, company_id),
				expires_at = $5, refined_at = COALESCE(refined_at, now())
			WHERE id = $1
		`, opportunityID, extraction.Title, extraction.Description, companyID, *extraction.ExpiresAt)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE opportunities
			SET title = $2, description = $3, company_id = COALESCE($4, company_id),
				refined_at = COALESCE(refined_at, now())
			WHERE id = $1
		`, opportunityID, extraction.Title, extraction.Description, companyID)
	}
	if err != nil {
		return false, shared.DatabaseError("apply_refinement", err)
	}

	if len(extraction.Tags) > 0 {
		// Unmatched names are dropped; the catalog is a closed set.
		tagIDs, err := resolveTagNames(ctx, tx, extraction.Tags)
		if err != nil {
			return false, err
		}

		for _, tagID := range tagIDs {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO opportunity_tag_associations (opportunity_id, tag_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, opportunityID, tagID)
			if err != nil {
				return false, shared.DatabaseError("apply_refinement", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, shared.DatabaseError("apply_refinement", err)
	}

	s.metrics.RecordRequest(true, time.Since(startTime))

	logrus.WithFields(logrus.Fields{
		"opportunity_id":   opportunityID,
		"first_refinement": firstRefinement,
		"tag_count":        len(extraction.Tags),
	}).Info("Applied refinement")

	return firstRefinement, nil
}

// HardDelete removes the opportunity; tags, bookmarks, and reports follow by
// cascade.
func (s *OpportunityService) HardDelete(ctx context.Context, id uuid.UUID) error {
	result, err := s.DB.ExecContext(ctx, `DELETE FROM opportunities WHERE id = $1`, id)
	if err != nil {
		return shared.DatabaseError("hard_delete", err)
	}

	affected, _ := result.RowsAffected()
	logrus.WithFields(logrus.Fields{
		"opportunity_id": id,
		"rows_affected":  affected,
	}).Info("Hard-deleted opportunity")

	return nil
}

// ToggleBookmark flips the bookmark state for the (opportunity, member)
// pair inside one transaction and returns the resulting state.
func (s *OpportunityService) ToggleBookmark(ctx context.Context, opportunityID, memberID uuid.UUID) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, shared.DatabaseError("toggle_bookmark", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM opportunity_bookmarks WHERE opportunity_id = $1 AND member_id = $2
	`, opportunityID, memberID)
	if err != nil {
		return false, shared.DatabaseError("toggle_bookmark", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return false, shared.DatabaseError("toggle_bookmark", err)
	}

	bookmarked := false
	if deleted == 0 {
		// The primary key keeps concurrent toggles from inserting twice.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO opportunity_bookmarks (opportunity_id, member_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, opportunityID, memberID)
		if err != nil {
			return false, shared.DatabaseError("toggle_bookmark", err)
		}
		bookmarked = true
	}

	if err := tx.Commit(); err != nil {
		return false, shared.DatabaseError("toggle_bookmark", err)
	}

	return bookmarked, nil
}

// HasWritePermission reports whether the member may edit or delete the
// opportunity: they posted it, or they are an active admin. This is the
// single implementation shared by the query surface and moderation.
func (s *OpportunityService) HasWritePermission(ctx context.Context, opportunityID, memberID uuid.UUID) (bool, error) {
	var allowed bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM opportunities o
			JOIN members m ON m.id = $2
			WHERE o.id = $1
			  AND m.deleted_at IS NULL
			  AND (o.posted_by = m.id OR m.role = 'admin')
		)
	`, opportunityID, memberID).Scan(&allowed)
	if err != nil {
		return false, shared.DatabaseError("has_write_permission", err)
	}
	return allowed, nil
}

// FindMemberBySlackUser maps a workspace user id to a member id, or nil
// when no member has linked that identity.
func (s *OpportunityService) FindMemberBySlackUser(ctx context.Context, slackUserID string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := s.DB.QueryRowContext(ctx, `
		SELECT id FROM members WHERE slack_user_id = $1 AND deleted_at IS NULL
	`, slackUserID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shared.DatabaseError("find_member_by_slack_user", err)
	}
	return &id, nil
}

// IsActiveAdmin reports whether the member is a non-deleted admin.
func (s *OpportunityService) IsActiveAdmin(ctx context.Context, memberID uuid.UUID) (bool, error) {
	var active bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM members WHERE id = $1 AND role = 'admin' AND deleted_at IS NULL
		)
	`, memberID).Scan(&active)
	if err != nil {
		return false, shared.DatabaseError("is_active_admin", err)
	}
	return active, nil
}

// FileReport records a report idempotently and, when the report count
// reaches autoExpireThreshold or the reporter is an active admin, expires
// the opportunity — all in one transaction. It reports whether the
// opportunity was removed from the board.
func (s *OpportunityService) FileReport(ctx context.Context, opportunityID, reporterID uuid.UUID, reason string, autoExpireThreshold int) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, shared.DatabaseError("file_report", err)
	}
	defer tx.Rollback()

	// Duplicate reports from the same reporter are silent no-ops.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO opportunity_reports (opportunity_id, reporter_id, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, opportunityID, reporterID, reason)
	if err != nil {
		return false, shared.DatabaseError("file_report", err)
	}

	var reportCount int
	err = tx.QueryRowContext(ctx, `
		SELECT count(*) FROM opportunity_reports WHERE opportunity_id = $1
	`, opportunityID).Scan(&reportCount)
	if err != nil {
		return false, shared.DatabaseError("file_report", err)
	}

	var adminReporter bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM members WHERE id = $1 AND role = 'admin' AND deleted_at IS NULL
		)
	`, reporterID).Scan(&adminReporter)
	if err != nil {
		return false, shared.DatabaseError("file_report", err)
	}

	removed := false
	if reportCount >= autoExpireThreshold || adminReporter {
		result, err := tx.ExecContext(ctx, `
			UPDATE opportunities SET expires_at = now() WHERE id = $1 AND expires_at > now()
		`, opportunityID)
		if err != nil {
			return false, shared.DatabaseError("file_report", err)
		}
		affected, _ := result.RowsAffected()
		removed = affected > 0
	}

	if err := tx.Commit(); err != nil {
		return false, shared.DatabaseError("file_report", err)
	}

	logrus.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"report_count":   reportCount,
		"admin_reporter": adminReporter,
		"removed":        removed,
	}).Info("Filed opportunity report")

	return removed, nil
}

// BeginExpirationCheck selects the opportunity for a re-check and stamps
// last_expiration_check in the same statement, so concurrent checks of the
// same stale record cannot both proceed. Selection requires: not already
// expired, a non-empty link, and either force or a last check older than
// cooldown (or never checked). Returns the link and whether the row was
// selected.
func (s *OpportunityService) BeginExpirationCheck(ctx context.Context, id uuid.UUID, force bool, cooldown time.Duration) (string, bool, error) {
	var link string
	err := s.DB.QueryRowContext(ctx, `
		UPDATE opportunities
		SET last_expiration_check = now()
		WHERE id = $1
		  AND expires_at > now()
		  AND link <> ''
		  AND ($2 OR last_expiration_check IS NULL OR last_expiration_check < now() - ($3 * interval '1 second'))
		RETURNING link
	`, id, force, cooldown.Seconds()).Scan(&link)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, shared.DatabaseError("begin_expiration_check", err)
	}
	return link, true, nil
}

// MarkExpired sets the opportunity's expiry to now.
func (s *OpportunityService) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE opportunities SET expires_at = now() WHERE id = $1`, id)
	if err != nil {
		return shared.DatabaseError("mark_expired", err)
	}

	logrus.WithField("opportunity_id", id).Info("Marked opportunity expired")
	return nil
}

// ListNeverChecked returns up to limit non-expired opportunities that have
// never had an expiration check, oldest first.
func (s *OpportunityService) ListNeverChecked(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id
		FROM opportunities
		WHERE expires_at > now() AND last_expiration_check IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, shared.DatabaseError("list_never_checked", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, shared.DatabaseError("list_never_checked", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetDetails returns the composed detail view for the frontend: company,
// poster, bookmark aggregates, the viewer's flags, and name-sorted tags.
func (s *OpportunityService) GetDetails(ctx context.Context, id, viewerID uuid.UUID) (*models.OpportunityDetails, error) {
	var details models.OpportunityDetails
	err := s.DB.QueryRowContext(ctx, `
		SELECT o.id, o.link, o.title, o.description, o.company_id, o.posted_by, o.created_at,
			o.expires_at, o.last_expiration_check, o.refined_at, o.slack_channel_id, o.slack_message_id,
			c.name,
			m.first_name || ' ' || m.last_name,
			(SELECT count(*) FROM opportunity_bookmarks b WHERE b.opportunity_id = o.id),
			EXISTS (SELECT 1 FROM opportunity_bookmarks b WHERE b.opportunity_id = o.id AND b.member_id = $2),
			sm.text
		FROM opportunities o
		JOIN members m ON m.id = o.posted_by
		LEFT JOIN companies c ON c.id = o.company_id
		LEFT JOIN slack_messages sm
			ON sm.channel_id = o.slack_channel_id AND sm.message_id = o.slack_message_id
		WHERE o.id = $1
	`, id, viewerID).Scan(
		&details.ID, &details.Link, &details.Title, &details.Description, &details.CompanyID,
		&details.PostedBy, &details.CreatedAt, &details.ExpiresAt, &details.LastExpirationCheck,
		&details.RefinedAt, &details.SlackChannelID, &details.SlackMessageID,
		&details.CompanyName, &details.PosterName, &details.BookmarkCount, &details.Bookmarked,
		&details.SourceMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shared.DatabaseError("get_details", err)
	}

	canEdit, err := s.HasWritePermission(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	details.CanEdit = canEdit

	tagsByOpportunity, err := s.tagsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	details.Tags = tagsByOpportunity[id]

	return &details, nil
}

// ListSummaries returns the condensed board view: non-expired opportunities,
// newest first, with bookmark counts and tags.
func (s *OpportunityService) ListSummaries(ctx context.Context, limit, offset int) ([]models.OpportunitySummary, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT o.id, o.title, o.link, c.name, o.created_at, o.expires_at,
			(SELECT count(*) FROM opportunity_bookmarks b WHERE b.opportunity_id = o.id)
		FROM opportunities o
		LEFT JOIN companies c ON c.id = o.company_id
		WHERE o.expires_at > now()
		ORDER BY o.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, shared.DatabaseError("list_summaries", err)
	}
	defer rows.Close()

	var summaries []models.OpportunitySummary
	var ids []uuid.UUID
	for rows.Next() {
		var summary models.OpportunitySummary
		err := rows.Scan(&summary.ID, &summary.Title, &summary.Link, &summary.CompanyName,
			&summary.CreatedAt, &summary.ExpiresAt, &summary.BookmarkCount)
		if err != nil {
			return nil, shared.DatabaseError("list_summaries", err)
		}
		summaries = append(summaries, summary)
		ids = append(ids, summary.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.DatabaseError("list_summaries", err)
	}

	tagsByOpportunity, err := s.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		summaries[i].Tags = tagsByOpportunity[summaries[i].ID]
	}

	return summaries, nil
}

// tagsFor returns each opportunity's tags sorted by name.
func (s *OpportunityService) tagsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]models.Tag, error) {
	tagsByOpportunity := make(map[uuid.UUID][]models.Tag)
	if len(ids) == 0 {
		return tagsByOpportunity, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT a.opportunity_id, t.id, t.name, t.color, t.created_at
		FROM opportunity_tag_associations a
		JOIN opportunity_tags t ON t.id = a.tag_id
		WHERE a.opportunity_id = ANY($1)
		ORDER BY t.name ASC
	`, pq.Array(ids))
	if err != nil {
		return nil, shared.DatabaseError("tags_for", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opportunityID uuid.UUID
		var tag models.Tag
		if err := rows.Scan(&opportunityID, &tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, shared.DatabaseError("tags_for", err)
		}
		tagsByOpportunity[opportunityID] = append(tagsByOpportunity[opportunityID], tag)
	}

	return tagsByOpportunity, rows.Err()
}

// EditOpportunityInput carries a member edit of an opportunity.
type EditOpportunityInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ExpiresAt   string `json:"expires_at"` // calendar date, YYYY-MM-DD
	Tags        string `json:"tags"`       // comma-separated tag id list
}

// EditOpportunity validates and applies a member edit: field updates and
// tag re-association happen in one transaction.
func (s *OpportunityService) EditOpportunity(ctx context.Context, id uuid.UUID, input EditOpportunityInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return shared.ValidationError("edit_opportunity", "title is required")
	}
	if utf8.RuneCountInString(title) > 100 {
		return shared.ValidationError("edit_opportunity", "title must be at most 100 characters")
	}
	if utf8.RuneCountInString(input.Description) > 500 {
		return shared.ValidationError("edit_opportunity", "description must be at most 500 characters")
	}

	expiresAt, err := time.Parse("2006-01-02", input.ExpiresAt)
	if err != nil {
		return shared.ValidationError("edit_opportunity", "expires_at must be a calendar date (YYYY-MM-DD)")
	}

	var tagIDs []uuid.UUID
	for _, raw := range strings.Split(input.Tags, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tagID, err := uuid.Parse(raw)
		if err != nil {
			return shared.ValidationError("edit_opportunity", "tags must be a comma-separated list of tag ids")
		}
		tagIDs = append(tagIDs, tagID)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return shared.DatabaseError("edit_opportunity", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE opportunities SET title = $2, description = $3, expires_at = $4 WHERE id = $1
	`, id, title, input.Description, expiresAt)
	if err != nil {
		return shared.DatabaseError("edit_opportunity", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return shared.NotFoundError("edit_opportunity", "opportunity not found")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM opportunity_tag_associations WHERE opportunity_id = $1`, id); err != nil {
		return shared.DatabaseError("edit_opportunity", err)
	}
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO opportunity_tag_associations (opportunity_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, tagID)
		if err != nil {
			return shared.DatabaseError("edit_opportunity", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return shared.DatabaseError("edit_opportunity", err)
	}

	return nil
}
