package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// OpportunitiesHandler manages opportunity endpoints.
type OpportunitiesHandler struct {
	service *service.OpportunityService
}

// NewOpportunitiesHandler constructs handler.
func NewOpportunitiesHandler(opportunities *service.OpportunityService) *OpportunitiesHandler {
	return &OpportunitiesHandler{service: opportunities}
}

// List GET /api/opportunities.
func (h *OpportunitiesHandler) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), service.OpportunityListFilter{
		PageRequest: pageRequest(q),
		OwnerID:     optionalID(q.OwnerID),
		AccountID:   optionalID(q.AccountID),
		Stage:       domain.OpportunityStage(q.Stage),
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, toPage(page, dto.NewOpportunityResponse))
}

// Get GET /api/opportunities/:id.
func (h *OpportunitiesHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	opp, err := h.service.Get(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewOpportunityResponse(opp))
}

// Create POST /api/opportunities. Owner defaults to the caller.
func (h *OpportunitiesHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.OpportunityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	fields := opportunityFields(req)
	if fields.OwnerID == nil {
		fields.OwnerID = &user.ID
	}
	opp, err := h.service.Create(c.UserContext(), fields, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewOpportunityResponse(opp))
}

// Update PUT /api/opportunities/:id.
func (h *OpportunitiesHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.OpportunityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	opp, err := h.service.Update(c.UserContext(), id, opportunityFields(req), user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewOpportunityResponse(opp))
}

// UpdateStage PUT /api/opportunities/:id/stage.
func (h *OpportunitiesHandler) UpdateStage(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.StageRequest
	if err := parseQueryOrBody(c, &req); err != nil {
		return err
	}
	opp, err := h.service.UpdateStage(c.UserContext(), id, req.Stage, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewOpportunityResponse(opp))
}

// Delete DELETE /api/opportunities/:id.
func (h *OpportunitiesHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id, user.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeOwner PUT /api/opportunities/:id/change-owner.
func (h *OpportunitiesHandler) ChangeOwner(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ChangeOwnerRequest
	if err := parseQueryOrBody(c, &req); err != nil {
		return err
	}
	opp, err := h.service.ChangeOwner(c.UserContext(), id, req.OwnerID, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewOpportunityResponse(opp))
}

func opportunityFields(req dto.OpportunityRequest) service.OpportunityFields {
	return service.OpportunityFields{
		Name:        req.Name,
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Stage:       req.Stage,
		Probability: req.Probability,
		CloseDate:   req.CloseDate,
		Description: req.Description,
		OwnerID:     req.OwnerID,
	}
}
