package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// LeadsHandler manages lead endpoints, including conversion and duplicate checks.
type LeadsHandler struct {
	service    *service.LeadService
	conversion *service.LeadConversionService
}

// NewLeadsHandler constructs handler.
func NewLeadsHandler(leads *service.LeadService, conversion *service.LeadConversionService) *LeadsHandler {
	return &LeadsHandler{service: leads, conversion: conversion}
}

// List GET /api/leads. Converted leads are hidden unless include_converted=true.
func (h *LeadsHandler) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), service.LeadListFilter{
		PageRequest:      pageRequest(q),
		OwnerID:          optionalID(q.OwnerID),
		Status:           domain.LeadStatus(q.Status),
		IncludeConverted: q.IncludeConverted,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, toPage(page, dto.NewLeadResponse))
}

// Get GET /api/leads/:id.
func (h *LeadsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	lead, err := h.service.Get(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewLeadResponse(lead))
}

// Create POST /api/leads?check_duplicates=&auto_assign=.
func (h *LeadsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var opts dto.LeadCreateQuery
	if err := parseQuery(c, &opts); err != nil {
		return err
	}
	var req dto.LeadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	lead, err := h.service.Create(c.UserContext(), leadFields(req), service.LeadCreateOptions{
		CheckDuplicates: opts.CheckDuplicates,
		AutoAssign:      boolOr(opts.AutoAssign, true),
	}, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewLeadResponse(lead))
}

// Update PUT /api/leads/:id.
func (h *LeadsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.LeadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	lead, err := h.service.Update(c.UserContext(), id, leadFields(req), user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewLeadResponse(lead))
}

// Delete DELETE /api/leads/:id.
func (h *LeadsHandler) Delete(c *fiber.Ctx) error {
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

// ChangeOwner PUT /api/leads/:id/change-owner.
func (h *LeadsHandler) ChangeOwner(c *fiber.Ctx) error {
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
	lead, err := h.service.ChangeOwner(c.UserContext(), id, req.OwnerID, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewLeadResponse(lead))
}

// Convert POST /api/leads/:id/convert.
func (h *LeadsHandler) Convert(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ConvertLeadRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	opts := service.DefaultConvertOptions()
	opts.CreateAccount = boolOr(req.CreateAccount, opts.CreateAccount)
	opts.CreateOpportunity = boolOr(req.CreateOpportunity, opts.CreateOpportunity)
	opts.AccountName = req.AccountName
	opts.OpportunityName = req.OpportunityName
	if req.OpportunityAmount != nil {
		opts.OpportunityAmount = *req.OpportunityAmount
	}
	opts.OwnerID = req.OwnerID

	result, err := h.conversion.ConvertLead(c.UserContext(), id, opts, user.ID)
	if err != nil {
		return err
	}
	resp := dto.ConvertLeadResponse{Success: true, LeadID: result.Lead.ID, ContactID: result.Contact.ID}
	if result.Account != nil {
		resp.AccountID = &result.Account.ID
	}
	if result.Opportunity != nil {
		resp.OpportunityID = &result.Opportunity.ID
	}
	return data(c, http.StatusOK, resp)
}

// CheckDuplicates POST /api/leads/check-duplicates.
func (h *LeadsHandler) CheckDuplicates(c *fiber.Ctx) error {
	var req dto.DuplicateCheckRequest
	if err := parseQueryOrBody(c, &req); err != nil {
		return err
	}
	warning, err := h.service.CheckDuplicates(c.UserContext(), req.Email, req.Phone)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, warning)
}

func leadFields(req dto.LeadRequest) service.LeadFields {
	return service.LeadFields{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Company:     req.Company,
		Title:       req.Title,
		Phone:       req.Phone,
		Email:       req.Email,
		Status:      req.Status,
		Score:       req.Score,
		Region:      req.Region,
		Source:      req.Source,
		Description: req.Description,
		OwnerID:     req.OwnerID,
	}
}
