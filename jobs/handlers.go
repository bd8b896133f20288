package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/communityhq/opportunity-board/services"
	"github.com/sirupsen/logrus"
)

// RegisterHandlers binds every job name the services dispatch to its worker.
func RegisterHandlers(
	queue *Queue,
	enrichment *services.EnrichmentService,
	moderation *services.ModerationService,
	notifier services.NotificationEmitter,
	analytics services.AnalyticsEmitter,
) {
	queue.Register(services.JobCheckExpired, func(ctx context.Context, payload []byte) error {
		var p services.CheckExpiredPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad check-expired payload: %w", err)
		}
		expired, err := moderation.CheckExpired(ctx, p.OpportunityID, p.Force)
		if err != nil {
			return err
		}
		if expired {
			logrus.WithField("opportunity_id", p.OpportunityID).Info("Re-check expired an opportunity")
		}
		return nil
	})

	queue.Register(services.JobSweepExpired, func(ctx context.Context, payload []byte) error {
		var p services.SweepExpiredPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad sweep payload: %w", err)
		}
		return moderation.SweepExpired(ctx, p.Limit)
	})

	queue.Register(services.JobCreateFromSlack, func(ctx context.Context, payload []byte) error {
		var p services.CreateFromSlackPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad create-from-slack payload: %w", err)
		}
		return enrichment.SubmitFromSlack(ctx, p.ChannelID, p.MessageID, p.NotifyOnFailure)
	})

	queue.Register(services.JobSendNotification, func(ctx context.Context, payload []byte) error {
		var p services.SendNotificationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad notification payload: %w", err)
		}
		if p.UserID != "" {
			return notifier.SendDirect(ctx, p.UserID, p.Text)
		}
		return notifier.SendToChannel(ctx, p.ChannelID, p.ThreadID, p.Text)
	})

	// Point awards are consumed downstream off the analytics stream; this
	// module only records the event.
	queue.Register(services.JobActivityCompleted, func(ctx context.Context, payload []byte) error {
		var p services.ActivityCompletedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("bad activity payload: %w", err)
		}
		return analytics.Track(ctx, p.MemberID, "activity_completed", map[string]interface{}{
			"type": p.Type,
		})
	})
}
