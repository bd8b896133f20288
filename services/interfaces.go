package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// ContentFetcher retrieves the rendered text content of a URL. Failures are
// returned as-is; callers decide whether to swallow (submission) or surface
// (moderation checks) them.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CompletionRequest is a single AI extraction call.
type CompletionRequest struct {
	SystemPrompt string  `json:"system_prompt"`
	UserPrompt   string  `json:"user_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

// CompletionClient returns a free-text completion for a prompt.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompanyResolver finds-or-creates a canonical company record. It takes the
// caller's transaction handle so company resolution participates in the
// refinement transaction.
type CompanyResolver interface {
	ResolveOrCreate(ctx context.Context, tx *sql.Tx, name string) (uuid.UUID, error)
}

// NotificationEmitter sends chat messages, optionally threaded to a source
// message.
type NotificationEmitter interface {
	SendToChannel(ctx context.Context, channelID, threadID, text string) error
	SendDirect(ctx context.Context, userID, text string) error
}

// AnalyticsEmitter records named events attributed to a member.
type AnalyticsEmitter interface {
	Track(ctx context.Context, memberID uuid.UUID, event string, properties map[string]interface{}) error
}

// JobEnqueuer dispatches asynchronous work to the background job queue,
// fire-and-forget.
type JobEnqueuer interface {
	Enqueue(jobName string, payload interface{}) error
}

// Job names dispatched through the queue.
const (
	JobCheckExpired      = "opportunity.check_expired"
	JobSweepExpired      = "opportunity.check_expired.sweep"
	JobCreateFromSlack   = "opportunity.create_from_slack"
	JobSendNotification  = "notification.send"
	JobActivityCompleted = "gamification.activity_completed"
)

// CheckExpiredPayload triggers a single expiration re-check.
type CheckExpiredPayload struct {
	OpportunityID uuid.UUID `json:"opportunity_id"`
	Force         bool      `json:"force"`
}

// SweepExpiredPayload triggers a bounded expiration sweep.
type SweepExpiredPayload struct {
	Limit int `json:"limit"`
}

// CreateFromSlackPayload triggers chat-sourced opportunity creation.
type CreateFromSlackPayload struct {
	ChannelID       string `json:"channel_id"`
	MessageID       string `json:"message_id"`
	NotifyOnFailure bool   `json:"notify_on_failure"`
}

// SendNotificationPayload dispatches an outbound chat message.
type SendNotificationPayload struct {
	ChannelID string `json:"channel_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Text      string `json:"text"`
}

// ActivityCompletedPayload awards activity points for a completed action.
type ActivityCompletedPayload struct {
	MemberID uuid.UUID `json:"member_id"`
	Type     string    `json:"type"`
}
