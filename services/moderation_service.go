package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

// expirationCheckCooldown throttles re-checks of the same opportunity to
// bound load on the content fetcher.
const expirationCheckCooldown = 3 * time.Hour

// reportAutoExpireThreshold is the number of distinct member reports that
// pulls an opportunity off the board. A single active-admin report is always
// sufficient.
const reportAutoExpireThreshold = 2

// ModerationService owns expiration scanning and report-driven removal.
type ModerationService struct {
	opportunities *OpportunityService
	fetcher       ContentFetcher
	analytics     AnalyticsEmitter
	enqueuer      JobEnqueuer
	metrics       *shared.ServiceMetrics
}

func NewModerationService(
	opportunities *OpportunityService,
	fetcher ContentFetcher,
	analytics AnalyticsEmitter,
	enqueuer JobEnqueuer,
) *ModerationService {
	return &ModerationService{
		opportunities: opportunities,
		fetcher:       fetcher,
		analytics:     analytics,
		enqueuer:      enqueuer,
		metrics:       shared.NewServiceMetrics("moderation"),
	}
}

// CheckExpired re-fetches the opportunity's link and expires the record when
// the page reads as dead. Returns whether expiration was detected. Records
// that are already expired, linkless, or checked within the cooldown (unless
// forced) are skipped without fetching.
func (s *ModerationService) CheckExpired(ctx context.Context, opportunityID uuid.UUID, force bool) (bool, error) {
	startTime := time.Now()

	link, selected, err := s.opportunities.BeginExpirationCheck(ctx, opportunityID, force, expirationCheckCooldown)
	if err != nil {
		return false, err
	}
	if !selected {
		return false, nil
	}

	content, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		// Scheduler-driven path: surface the failure so it is observed and
		// retried, unlike the submission path.
		shared.ReportException("check_expired.fetch", err)
		s.metrics.RecordRequest(false, time.Since(startTime))
		return false, err
	}

	if !containsExpiryPhrase(content) {
		s.metrics.RecordRequest(true, time.Since(startTime))
		return false, nil
	}

	if err := s.opportunities.MarkExpired(ctx, opportunityID); err != nil {
		return false, err
	}

	s.metrics.RecordRequest(true, time.Since(startTime))

	logrus.WithField("opportunity_id", opportunityID).Info("Detected expired opportunity")
	return true, nil
}

// SweepExpired fans out forced re-check jobs for up to limit never-checked
// opportunities, oldest first.
func (s *ModerationService) SweepExpired(ctx context.Context, limit int) error {
	ids, err := s.opportunities.ListNeverChecked(ctx, limit)
	if err != nil {
		return err
	}

	for _, id := range ids {
		err := s.enqueuer.Enqueue(JobCheckExpired, CheckExpiredPayload{
			OpportunityID: id,
			Force:         true,
		})
		if err != nil {
			shared.ReportException("sweep_expired.enqueue", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"scheduled": len(ids),
		"limit":     limit,
	}).Info("Expiration sweep scheduled re-checks")

	return nil
}

// Report records a complaint and applies the auto-removal rule: two
// distinct member reports, or one active-admin report, expire the
// opportunity immediately. Returns whether it was removed.
func (s *ModerationService) Report(ctx context.Context, opportunityID, reporterID uuid.UUID, reason string) (bool, error) {
	opportunity, err := s.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return false, err
	}
	if opportunity == nil {
		return false, shared.NotFoundError("report", "opportunity not found")
	}

	removed, err := s.opportunities.FileReport(ctx, opportunityID, reporterID, reason, reportAutoExpireThreshold)
	if err != nil {
		return false, err
	}

	if err := s.analytics.Track(ctx, reporterID, "opportunity_reported", map[string]interface{}{
		"opportunity_id": opportunityID.String(),
		"removed":        removed,
	}); err != nil {
		shared.ReportException("report.analytics", err)
	}

	return removed, nil
}

// Delete hard-deletes an opportunity after a write-permission check. A nil
// requester is always refused.
func (s *ModerationService) Delete(ctx context.Context, opportunityID uuid.UUID, requesterID *uuid.UUID) error {
	if requesterID == nil {
		return shared.ForbiddenError("delete", "a requesting member is required")
	}

	opportunity, err := s.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return err
	}
	if opportunity == nil {
		return shared.NotFoundError("delete", "opportunity not found")
	}

	allowed, err := s.opportunities.HasWritePermission(ctx, opportunityID, *requesterID)
	if err != nil {
		return err
	}
	if !allowed {
		return shared.ForbiddenError("delete", "only the poster or an admin can delete an opportunity")
	}

	return s.opportunities.HardDelete(ctx, opportunityID)
}
