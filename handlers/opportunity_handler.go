package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/communityhq/opportunity-board/services"
	"github.com/communityhq/opportunity-board/shared"
)

// OpportunityHandler exposes the board to the frontend. Authentication runs
// upstream; the gateway forwards the caller's identity in X-Member-ID.
type OpportunityHandler struct {
	Opportunities *services.OpportunityService
	Enrichment    *services.EnrichmentService
	Moderation    *services.ModerationService
	Queue         services.JobEnqueuer
}

func NewOpportunityHandler(
	opportunities *services.OpportunityService,
	enrichment *services.EnrichmentService,
	moderation *services.ModerationService,
	queue services.JobEnqueuer,
) *OpportunityHandler {
	return &OpportunityHandler{
		Opportunities: opportunities,
		Enrichment:    enrichment,
		Moderation:    moderation,
		Queue:         queue,
	}
}

func memberIDFromRequest(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Get("X-Member-ID")
	if raw == "" {
		return uuid.Nil, shared.ForbiddenError("member_id", "missing member identity")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.ForbiddenError("member_id", "invalid member identity")
	}
	return id, nil
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(shared.StatusOf(err)).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

func parseOpportunityID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, shared.ValidationError("opportunity_id", "invalid opportunity id")
	}
	return id, nil
}

type submitOpportunityRequest struct {
	Link string `json:"link"`
}

func (h *OpportunityHandler) Submit(c *fiber.Ctx) error {
	memberID, err := memberIDFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}

	var req submitOpportunityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	opportunity, err := h.Enrichment.SubmitLink(c.Context(), req.Link, memberID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"id": opportunity.ID},
	})
}

func (h *OpportunityHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	summaries, err := h.Opportunities.ListSummaries(c.Context(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summaries,
		"count":   len(summaries),
	})
}

func (h *OpportunityHandler) Get(c *fiber.Ctx) error {
	memberID, err := memberIDFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseOpportunityID(c)
	if err != nil {
		return respondError(c, err)
	}

	details, err := h.Opportunities.GetDetails(c.Context(), id, memberID)
	if err != nil {
		return respondError(c, err)
	}
	if details == nil {
		return respondError(c, shared.NotFoundError("get_opportunity", "opportunity not found"))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    details,
	})
}

func (h *OpportunityHandler) Edit(c *fiber.Ctx) error {
	memberID, err := memberIDFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseOpportunityID(c)
	if err != nil {
		return respondError(c, err)
	}

	allowed, err := h.Opportunities.HasWritePermission(c.Context(), id, memberID)
	if err != nil {
		return respondError(c, err)
	}
	if !allowed {
		return respondError(c, shared.ForbiddenError("edit_opportunity", "only the poster or an admin can edit an opportunity"))
	}

	var input services.EditOpportunityInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if err := h.Opportunities.EditOpportunity(c.Context(), id, input); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *OpportunityHandler) Delete(c *fiber.Ctx) error {
	memberID, err := memberIDFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseOpportunityID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.Moderation.Delete(c.Context(), id, &memberID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *OpportunityHandler) ToggleBookmark(c *fiber.Ctx) error {
	memberID, err := memberIDFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseOpportunityID(c)
	if err != nil {
		return respondError(c, err)
	}

	bookmarked, err := h.Opportunities.ToggleBookmark(c.Context(), id, memberID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"bookmarked": bookmarked},
	})
}

type reportOpportunityRequest struct {
	Reason string `json:"reason"`
}

func (h *OpportunityHandler) Report(c *fiber.Ctx) error {
	memberID, err := memberIDFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseOpportunityID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req reportOpportunityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	removed, err := h.Moderation.Report(c.Context(), id, memberID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"removed": removed},
	})
}

type slackIngestRequest struct {
	ChannelID       string `json:"channel_id"`
	MessageID       string `json:"message_id"`
	NotifyOnFailure bool   `json:"notify_on_failure"`
}

// IngestSlackMessage queues chat-sourced creation; the webhook caller gets
// an immediate ack while enrichment runs in the background.
func (h *OpportunityHandler) IngestSlackMessage(c *fiber.Ctx) error {
	var req slackIngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if req.ChannelID == "" || req.MessageID == "" {
		return respondError(c, shared.ValidationError("ingest_slack", "channel_id and message_id are required"))
	}

	err := h.Queue.Enqueue(services.JobCreateFromSlack, services.CreateFromSlackPayload{
		ChannelID:       req.ChannelID,
		MessageID:       req.MessageID,
		NotifyOnFailure: req.NotifyOnFailure,
	})
	if err != nil {
		return respondError(c, shared.UpstreamError("ingest_slack", "failed to queue chat submission", err))
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true})
}

type refineOpportunityRequest struct {
	Content string `json:"content"`
}

// Refine runs AI extraction over pasted page text, for postings whose pages
// could not be fetched automatically.
func (h *OpportunityHandler) Refine(c *fiber.Ctx) error {
	memberID, err := memberIDFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseOpportunityID(c)
	if err != nil {
		return respondError(c, err)
	}

	allowed, err := h.Opportunities.HasWritePermission(c.Context(), id, memberID)
	if err != nil {
		return respondError(c, err)
	}
	if !allowed {
		return respondError(c, shared.ForbiddenError("refine_opportunity", "only the poster or an admin can refine an opportunity"))
	}

	var req refineOpportunityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Content) == "" {
		return respondError(c, shared.ValidationError("refine_opportunity", "content is required"))
	}

	if err := h.Enrichment.Refine(c.Context(), req.Content, id, nil); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// TriggerExpirationCheck queues a forced re-check; admin only.
func (h *OpportunityHandler) TriggerExpirationCheck(c *fiber.Ctx) error {
	memberID, err := memberIDFromRequest(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseOpportunityID(c)
	if err != nil {
		return respondError(c, err)
	}

	admin, err := h.Opportunities.IsActiveAdmin(c.Context(), memberID)
	if err != nil {
		return respondError(c, err)
	}
	if !admin {
		return respondError(c, shared.ForbiddenError("trigger_check", "admin access required"))
	}

	err = h.Queue.Enqueue(services.JobCheckExpired, services.CheckExpiredPayload{
		OpportunityID: id,
		Force:         true,
	})
	if err != nil {
		return respondError(c, shared.UpstreamError("trigger_check", "failed to queue re-check", err))
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true})
}
