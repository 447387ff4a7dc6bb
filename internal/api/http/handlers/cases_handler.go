package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// CasesHandler manages case endpoints, including escalation, merging and the SLA sweep.
type CasesHandler struct {
	service    *service.CaseService
	escalation *service.CaseEscalationService
	merge      *service.CaseMergeService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(cases *service.CaseService, escalation *service.CaseEscalationService, merge *service.CaseMergeService) *CasesHandler {
	return &CasesHandler{service: cases, escalation: escalation, merge: merge}
}

// List GET /api/cases.
func (h *CasesHandler) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), service.CaseListFilter{
		PageRequest: pageRequest(q),
		OwnerID:     optionalID(q.OwnerID),
		AccountID:   optionalID(q.AccountID),
		Status:      domain.CaseStatus(q.Status),
		Priority:    domain.CasePriority(q.Priority),
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, toPage(page, dto.NewCaseResponse))
}

// ByPriority GET /api/cases/by-priority counts open cases per priority.
func (h *CasesHandler) ByPriority(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	counts, err := h.service.CountOpenByPriority(c.UserContext(), optionalID(q.OwnerID))
	if err != nil {
		return err
	}
	out := make(map[domain.CasePriority]int, len(domain.CasePriorities))
	for _, p := range domain.CasePriorities {
		out[p] = counts[p]
	}
	return data(c, http.StatusOK, out)
}

// Get GET /api/cases/:id.
func (h *CasesHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	kase, err := h.service.Get(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseResponse(kase))
}

// Create POST /api/cases?auto_assign=.
func (h *CasesHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var opts dto.CaseCreateQuery
	if err := parseQuery(c, &opts); err != nil {
		return err
	}
	var req dto.CaseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	kase, err := h.service.Create(c.UserContext(), caseFields(req), boolOr(opts.AutoAssign, true), user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewCaseResponse(kase))
}

// Update PUT /api/cases/:id.
func (h *CasesHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CaseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	kase, err := h.service.Update(c.UserContext(), id, caseFields(req), user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseResponse(kase))
}

// Delete DELETE /api/cases/:id.
func (h *CasesHandler) Delete(c *fiber.Ctx) error {
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

// ChangeOwner PUT /api/cases/:id/change-owner.
func (h *CasesHandler) ChangeOwner(c *fiber.Ctx) error {
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
	kase, err := h.service.ChangeOwner(c.UserContext(), id, req.OwnerID, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseResponse(kase))
}

// Escalate POST /api/cases/:id/escalate.
func (h *CasesHandler) Escalate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	kase, err := h.escalation.EscalateCase(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseResponse(kase))
}

// Merge POST /api/cases/merge.
func (h *CasesHandler) Merge(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.MergeCasesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	master, err := h.merge.MergeCases(c.UserContext(), req.CaseIDs, req.MasterCaseID, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseResponse(master))
}

// CheckSLA POST /api/cases/check-sla escalates every overdue case once.
func (h *CasesHandler) CheckSLA(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	escalated, err := h.escalation.SweepOverdueCases(c.UserContext(), &user.ID)
	if err != nil {
		return err
	}
	numbers := make([]string, 0, len(escalated))
	for _, kase := range escalated {
		numbers = append(numbers, kase.CaseNumber)
	}
	return data(c, http.StatusOK, dto.SLASweepResponse{EscalatedCount: len(escalated), EscalatedCases: numbers})
}

func caseFields(req dto.CaseRequest) service.CaseFields {
	return service.CaseFields{
		Subject:     req.Subject,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AccountID:   req.AccountID,
		ContactID:   req.ContactID,
		OwnerID:     req.OwnerID,
	}
}
