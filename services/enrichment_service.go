package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/communityhq/opportunity-board/config"
	"github.com/communityhq/opportunity-board/models"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

// expiryPhrases are scanned case-insensitively against fetched page text.
// Any match means the posting is dead.
var expiryPhrases = []string{
	"404",
	"expired",
	"no longer available",
	"no longer accepting",
	"not found",
	"removed",
	"closed",
	"position has been filled",
	"deadline has passed",
}

// slackLinkPattern matches Slack's bracketed hyperlink syntax, with or
// without display text: <https://x.test/job|Apply here>.
var slackLinkPattern = regexp.MustCompile(`<(https?://[^|>]+)(?:\|[^>]*)?>`)

// gatedDomains are hosts that require authentication or render nothing
// useful to a scraper; fetching them is skipped outright.
var gatedDomains = []string{
	"docs.google.com",
	"drive.google.com",
	"linkedin.com",
	"docsend.com",
}

const maxContentLength = 10000

const extractionSystemPrompt = `You are an assistant that extracts structured opportunity data from webpage text.
Respond with a single JSON object and nothing else. Fields:
  "company": the hiring organization's name, or null if unclear
  "title": the opportunity title (at most 100 characters), or null if unclear
  "description": a summary of the opportunity (at most 500 characters), or null if unclear
  "expires_at": the application deadline as YYYY-MM-DD, or null if none is stated
  "tags": 1 to 5 tag names chosen ONLY from the provided candidate list, or null
Never invent tags outside the candidate list. If the text does not describe an opportunity, return null for every field.`

// EnrichmentService turns raw links and chat messages into fully-described
// opportunities: placeholder creation, content fetching, AI extraction, and
// catalog reconciliation.
type EnrichmentService struct {
	opportunities *OpportunityService
	tags          *TagService
	companies     CompanyResolver
	fetcher       ContentFetcher
	ai            CompletionClient
	notifier      NotificationEmitter
	analytics     AnalyticsEmitter
	enqueuer      JobEnqueuer
	extraction    config.ExtractionConfig
	metrics       *shared.ServiceMetrics
}

func NewEnrichmentService(
	opportunities *OpportunityService,
	tags *TagService,
	companies CompanyResolver,
	fetcher ContentFetcher,
	ai CompletionClient,
	notifier NotificationEmitter,
	analytics AnalyticsEmitter,
	enqueuer JobEnqueuer,
	extraction config.ExtractionConfig,
) *EnrichmentService {
	return &EnrichmentService{
		opportunities: opportunities,
		tags:          tags,
		companies:     companies,
		fetcher:       fetcher,
		ai:            ai,
		notifier:      notifier,
		analytics:     analytics,
		enqueuer:      enqueuer,
		extraction:    extraction,
		metrics:       shared.NewServiceMetrics("enrichment"),
	}
}

// SlackOrigin identifies the chat message a submission came from, so a
// first-refinement notification can thread back to it.
type SlackOrigin struct {
	ChannelID string
	MessageID string
	UserID    string
}

// SubmitLink creates an opportunity from a pasted link. The placeholder is
// persisted before any enrichment runs; fetch and refinement trouble never
// loses the submission.
func (s *EnrichmentService) SubmitLink(ctx context.Context, link string, posterID uuid.UUID) (*models.Opportunity, error) {
	startTime := time.Now()

	if err := validateSubmissionLink(link); err != nil {
		return nil, err
	}

	existing, err := s.opportunities.FindByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.ConflictError("submit_link", "an opportunity with this link already exists")
	}

	opportunity, err := s.opportunities.CreatePlaceholder(ctx, link, posterID)
	if err != nil {
		return nil, err
	}

	content, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		// Submission must survive fetch trouble; the poster still has an
		// editable placeholder.
		shared.ReportException("submit_link.fetch", err)
		content = ""
	}

	if content == "" {
		s.recordSubmission(ctx, "submit_link", posterID, opportunity.ID, "link")
		s.metrics.RecordRequest(true, time.Since(startTime))
		return opportunity, nil
	}

	if containsExpiryPhrase(content) {
		if err := s.opportunities.HardDelete(ctx, opportunity.ID); err != nil {
			shared.ReportException("submit_link.cleanup", err)
		}
		s.metrics.RecordRequest(false, time.Since(startTime))
		return nil, shared.NotFoundError("submit_link", "the linked posting appears to be closed or removed")
	}

	// Analytics and the points award wait until the page is known to be
	// alive, so a dead link never earns activity credit.
	s.recordSubmission(ctx, "submit_link", posterID, opportunity.ID, "link")

	if err := s.Refine(ctx, content, opportunity.ID, nil); err != nil {
		// Refinement failure does not fail the submission.
		shared.ReportException("submit_link.refine", err)
	}

	s.metrics.RecordRequest(true, time.Since(startTime))
	return opportunity, nil
}

func (s *EnrichmentService) recordSubmission(ctx context.Context, op string, posterID, opportunityID uuid.UUID, source string) {
	if err := s.analytics.Track(ctx, posterID, "opportunity_submitted", map[string]interface{}{
		"opportunity_id": opportunityID.String(),
		"source":         source,
	}); err != nil {
		shared.ReportException(op+".analytics", err)
	}
	if err := s.enqueuer.Enqueue(JobActivityCompleted, ActivityCompletedPayload{
		MemberID: posterID,
		Type:     "opportunity_posted",
	}); err != nil {
		shared.ReportException(op+".activity", err)
	}
}

// SubmitFromSlack creates an opportunity from a mirrored chat message.
// Messages without a link, and links already on the board, are graceful
// no-ops rather than errors.
func (s *EnrichmentService) SubmitFromSlack(ctx context.Context, channelID, messageID string, notifyOnFailure bool) error {
	message, err := s.opportunities.GetSlackMessage(ctx, channelID, messageID)
	if err != nil {
		return err
	}
	if message == nil || strings.TrimSpace(message.Text) == "" {
		return shared.NotFoundError("submit_from_slack", "source message not found or empty")
	}

	link := extractFirstLink(message.Text)
	if link == "" {
		logrus.WithFields(logrus.Fields{
			"channel_id": channelID,
			"message_id": messageID,
		}).Debug("Chat message carries no link, skipping")
		return nil
	}

	existing, err := s.opportunities.FindByLink(ctx, link)
	if err != nil {
		return err
	}
	if existing != nil {
		logrus.WithField("link", link).Debug("Link already on the board, skipping chat submission")
		return nil
	}

	memberID, err := s.opportunities.FindMemberBySlackUser(ctx, message.UserID)
	if err != nil {
		return err
	}
	if memberID == nil {
		return shared.NotFoundError("submit_from_slack", "no member is linked to the posting chat user")
	}

	opportunityID, err := s.opportunities.UpsertFromSlack(ctx, channelID, messageID, link, *memberID)
	if err != nil {
		return err
	}

	s.recordSubmission(ctx, "submit_from_slack", *memberID, opportunityID, "slack")

	var content string
	if !isGatedDomain(link) {
		content, err = s.fetcher.Fetch(ctx, link)
		if err != nil {
			shared.ReportException("submit_from_slack.fetch", err)
			content = ""
		}
	}

	origin := &SlackOrigin{ChannelID: channelID, MessageID: messageID, UserID: message.UserID}

	if content == "" {
		if notifyOnFailure {
			s.sendManualRefinementRequest(origin)
		}
		return nil
	}

	return s.Refine(ctx, content, opportunityID, origin)
}

// Refine runs AI extraction over page content and applies the result to the
// opportunity. Unusable extractions (no confident title and description)
// succeed without mutating the record.
func (s *EnrichmentService) Refine(ctx context.Context, content string, opportunityID uuid.UUID, origin *SlackOrigin) error {
	candidates, err := s.tags.ListTags(ctx)
	if err != nil {
		return err
	}

	names := make([]string, len(candidates))
	for i, tag := range candidates {
		names[i] = tag.Name
	}

	userPrompt := fmt.Sprintf("Candidate tags: %s\n\nWebpage text:\n%s", strings.Join(names, ", "), truncateContent(content))

	callCtx, cancel := context.WithTimeout(ctx, s.extraction.CallTimeout)
	defer cancel()

	completion, err := s.ai.Complete(callCtx, CompletionRequest{
		SystemPrompt: extractionSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  s.extraction.Temperature,
		MaxTokens:    s.extraction.MaxTokens,
	})
	if err != nil {
		return err
	}

	extraction, usable, err := parseExtraction(completion)
	if err != nil {
		return err
	}
	if !usable {
		logrus.WithField("opportunity_id", opportunityID).Info("Extraction not confident enough to apply")
		if origin != nil {
			s.sendManualRefinementRequest(origin)
		}
		return nil
	}

	firstRefinement, err := s.opportunities.ApplyRefinement(ctx, opportunityID, *extraction, s.companies)
	if err != nil {
		return err
	}

	if firstRefinement && origin != nil && origin.ChannelID != "" {
		text := fmt.Sprintf("This opportunity was added to the board: *%s*", extraction.Title)
		if err := s.notifier.SendToChannel(ctx, origin.ChannelID, origin.MessageID, text); err != nil {
			shared.ReportException("refine.notify", err)
		}
	}

	return nil
}

func (s *EnrichmentService) sendManualRefinementRequest(origin *SlackOrigin) {
	if origin == nil || origin.UserID == "" {
		return
	}
	err := s.enqueuer.Enqueue(JobSendNotification, SendNotificationPayload{
		UserID: origin.UserID,
		Text: "We couldn't read the page behind your opportunity link. " +
			"Paste the posting's text here and we'll fill in the details for you.",
	})
	if err != nil {
		shared.ReportException("manual_refinement_request", err)
	}
}

// validateSubmissionLink requires an absolute http(s) URL.
func validateSubmissionLink(link string) error {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return shared.ValidationError("submit_link", "link must be an absolute URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return shared.ValidationError("submit_link", "link must use http or https")
	}
	return nil
}

// containsExpiryPhrase scans text case-insensitively for any dead-posting
// phrase.
func containsExpiryPhrase(content string) bool {
	lowered := strings.ToLower(content)
	for _, phrase := range expiryPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// extractFirstLink pulls the first embedded URL out of Slack message text.
func extractFirstLink(text string) string {
	match := slackLinkPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1]
}

func isGatedDomain(link string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range gatedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func truncateContent(content string) string {
	return clampRunes(content, maxContentLength)
}

// clampRunes shortens a string to at most max characters. Limits count
// characters, not bytes, so multibyte text is never cut mid-rune.
func clampRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) > max {
		return string(runes[:max])
	}
	return value
}

type rawExtraction struct {
	Company     *string  `json:"company"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	ExpiresAt   *string  `json:"expires_at"`
	Tags        []string `json:"tags"`
}

// parseExtraction decodes an AI completion into a usable extraction. The
// bool distinguishes "valid but not confident" (both title and description
// are required) from a usable result; malformed JSON is an error.
func parseExtraction(completion string) (*UsableExtraction, bool, error) {
	cleaned := stripCodeFences(completion)

	var raw rawExtraction
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, false, shared.MalformedUpstreamError("parse_extraction",
			fmt.Sprintf("completion is not valid extraction JSON: %v", err), err)
	}

	if raw.Title == nil || strings.TrimSpace(*raw.Title) == "" ||
		raw.Description == nil || strings.TrimSpace(*raw.Description) == "" {
		return nil, false, nil
	}

	title := clampRunes(strings.TrimSpace(*raw.Title), 100)
	description := clampRunes(strings.TrimSpace(*raw.Description), 500)

	extraction := &UsableExtraction{
		Company:     raw.Company,
		Title:       title,
		Description: description,
	}

	if raw.ExpiresAt != nil && strings.TrimSpace(*raw.ExpiresAt) != "" {
		parsed, err := parseExtractionDate(strings.TrimSpace(*raw.ExpiresAt))
		if err != nil {
			return nil, false, shared.MalformedUpstreamError("parse_extraction",
				fmt.Sprintf("expires_at %q is not a date", *raw.ExpiresAt), err)
		}
		extraction.ExpiresAt = &parsed
	}

	if len(raw.Tags) > 5 {
		raw.Tags = raw.Tags[:5]
	}
	extraction.Tags = raw.Tags

	return extraction, true, nil
}

func parseExtractionDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", value)
}

// stripCodeFences removes a surrounding markdown fence some models wrap
// their JSON in.
func stripCodeFences(completion string) string {
	trimmed := strings.TrimSpace(completion)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
