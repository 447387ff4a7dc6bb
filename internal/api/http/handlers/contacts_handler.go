package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// ContactsHandler manages contact endpoints.
type ContactsHandler struct {
	service    *service.ContactService
	duplicates *service.DuplicateDetector
}

// NewContactsHandler constructs handler.
func NewContactsHandler(contacts *service.ContactService, duplicates *service.DuplicateDetector) *ContactsHandler {
	return &ContactsHandler{service: contacts, duplicates: duplicates}
}

// List GET /api/contacts.
func (h *ContactsHandler) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), service.ContactListFilter{
		PageRequest: pageRequest(q),
		OwnerID:     optionalID(q.OwnerID),
		AccountID:   optionalID(q.AccountID),
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, toPage(page, dto.NewContactResponse))
}

// Get GET /api/contacts/:id.
func (h *ContactsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	contact, err := h.service.Get(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewContactResponse(contact))
}

// Create POST /api/contacts. Owner defaults to the caller.
func (h *ContactsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ContactRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	fields := contactFields(req)
	if fields.OwnerID == nil {
		fields.OwnerID = &user.ID
	}
	contact, err := h.service.Create(c.UserContext(), fields, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewContactResponse(contact))
}

// Update PUT /api/contacts/:id.
func (h *ContactsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ContactRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	contact, err := h.service.Update(c.UserContext(), id, contactFields(req), user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewContactResponse(contact))
}

// Delete DELETE /api/contacts/:id.
func (h *ContactsHandler) Delete(c *fiber.Ctx) error {
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

// ChangeOwner PUT /api/contacts/:id/change-owner.
func (h *ContactsHandler) ChangeOwner(c *fiber.Ctx) error {
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
	contact, err := h.service.ChangeOwner(c.UserContext(), id, req.OwnerID, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewContactResponse(contact))
}

// CheckDuplicates POST /api/contacts/check-duplicates.
func (h *ContactsHandler) CheckDuplicates(c *fiber.Ctx) error {
	var req dto.DuplicateCheckRequest
	if err := parseQueryOrBody(c, &req); err != nil {
		return err
	}
	warning, err := h.duplicates.CheckDuplicates(c.UserContext(), domain.RecordKindContact, req.Email, req.Phone)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, warning)
}

func contactFields(req dto.ContactRequest) service.ContactFields {
	return service.ContactFields{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		AccountID:      req.AccountID,
		Title:          req.Title,
		Phone:          req.Phone,
		Email:          req.Email,
		MailingAddress: req.MailingAddress,
		OwnerID:        req.OwnerID,
	}
}
