package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

const slackAPIBaseURL = "https://slack.com/api"

// SlackNotificationEmitter posts messages through the Slack Web API.
// Notification failures never fail the triggering operation; callers report
// and continue.
type SlackNotificationEmitter struct {
	botToken      string
	clientFactory *shared.HTTPClientFactory
}

func NewSlackNotificationEmitter(botToken string, clientFactory *shared.HTTPClientFactory) *SlackNotificationEmitter {
	return &SlackNotificationEmitter{
		botToken:      botToken,
		clientFactory: clientFactory,
	}
}

type slackPostMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

type slackAPIResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SendToChannel posts text to a channel, threaded under threadID when it is
// non-empty.
func (e *SlackNotificationEmitter) SendToChannel(ctx context.Context, channelID, threadID, text string) error {
	return e.postMessage(ctx, slackPostMessageRequest{
		Channel:  channelID,
		Text:     text,
		ThreadTS: threadID,
	})
}

// SendDirect sends a direct message to a workspace user.
func (e *SlackNotificationEmitter) SendDirect(ctx context.Context, userID, text string) error {
	return e.postMessage(ctx, slackPostMessageRequest{
		Channel: userID,
		Text:    text,
	})
}

func (e *SlackNotificationEmitter) postMessage(ctx context.Context, message slackPostMessageRequest) error {
	body, err := json.Marshal(message)
	if err != nil {
		return shared.UpstreamError("slack_post_message", fmt.Sprintf("failed to encode message: %v", err), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slackAPIBaseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return shared.UpstreamError("slack_post_message", fmt.Sprintf("failed to build request: %v", err), err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+e.botToken)

	resp, err := e.clientFactory.Client(15 * time.Second).Do(req)
	if err != nil {
		return shared.UpstreamError("slack_post_message", fmt.Sprintf("request failed: %v", err), err)
	}
	defer resp.Body.Close()

	var apiResp slackAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return shared.MalformedUpstreamError("slack_post_message", fmt.Sprintf("unreadable response: %v", err), err)
	}
	if !apiResp.OK {
		return shared.UpstreamError("slack_post_message", fmt.Sprintf("slack API error: %s", apiResp.Error), nil)
	}

	logrus.WithField("channel", message.Channel).Debug("Posted Slack message")
	return nil
}

// HTTPAnalyticsEmitter ships behavioral events to the analytics collector.
// Tracking is fire-and-forget: failures are reported, never propagated.
type HTTPAnalyticsEmitter struct {
	endpoint      string
	apiKey        string
	clientFactory *shared.HTTPClientFactory
}

func NewHTTPAnalyticsEmitter(endpoint, apiKey string, clientFactory *shared.HTTPClientFactory) *HTTPAnalyticsEmitter {
	return &HTTPAnalyticsEmitter{
		endpoint:      endpoint,
		apiKey:        apiKey,
		clientFactory: clientFactory,
	}
}

type analyticsEvent struct {
	MemberID   uuid.UUID              `json:"member_id"`
	Event      string                 `json:"event"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

func (e *HTTPAnalyticsEmitter) Track(ctx context.Context, memberID uuid.UUID, event string, properties map[string]interface{}) error {
	body, err := json.Marshal(analyticsEvent{
		MemberID:   memberID,
		Event:      event,
		Properties: properties,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return shared.UpstreamError("analytics_track", fmt.Sprintf("failed to encode event: %v", err), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return shared.UpstreamError("analytics_track", fmt.Sprintf("failed to build request: %v", err), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := shared.ExecuteHTTPRequestWithRetry(e.clientFactory.Client(10*time.Second), req, 2)
	if err != nil {
		return shared.UpstreamError("analytics_track", fmt.Sprintf("request failed: %v", err), err)
	}
	resp.Body.Close()

	return nil
}

// NoopAnalyticsEmitter is used when no collector is configured.
type NoopAnalyticsEmitter struct{}

func (NoopAnalyticsEmitter) Track(ctx context.Context, memberID uuid.UUID, event string, properties map[string]interface{}) error {
	return nil
}

// NoopNotificationEmitter is used when no bot token is configured.
type NoopNotificationEmitter struct{}

func (NoopNotificationEmitter) SendToChannel(ctx context.Context, channelID, threadID, text string) error {
	return nil
}

func (NoopNotificationEmitter) SendDirect(ctx context.Context, userID, text string) error {
	return nil
}
