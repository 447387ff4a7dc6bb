package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// AccountsHandler manages account endpoints.
type AccountsHandler struct {
	service *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{service: accounts}
}

// List GET /api/accounts.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), service.AccountListFilter{
		PageRequest: pageRequest(q),
		OwnerID:     optionalID(q.OwnerID),
		Industry:    q.Industry,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, toPage(page, dto.NewAccountResponse))
}

// Get GET /api/accounts/:id.
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	account, err := h.service.Get(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAccountResponse(account))
}

// Create POST /api/accounts. Owner defaults to the caller.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AccountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	fields := accountFields(req)
	if fields.OwnerID == nil {
		fields.OwnerID = &user.ID
	}
	account, err := h.service.Create(c.UserContext(), fields, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewAccountResponse(account))
}

// Update PUT /api/accounts/:id.
func (h *AccountsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AccountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.service.Update(c.UserContext(), id, accountFields(req), user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAccountResponse(account))
}

// Delete DELETE /api/accounts/:id.
func (h *AccountsHandler) Delete(c *fiber.Ctx) error {
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

// ChangeOwner PUT /api/accounts/:id/change-owner.
func (h *AccountsHandler) ChangeOwner(c *fiber.Ctx) error {
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
	account, err := h.service.ChangeOwner(c.UserContext(), id, req.OwnerID, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAccountResponse(account))
}

func accountFields(req dto.AccountRequest) service.AccountFields {
	return service.AccountFields{
		Name:           req.Name,
		Phone:          req.Phone,
		Website:        req.Website,
		Industry:       req.Industry,
		Description:    req.Description,
		BillingAddress: req.BillingAddress,
		OwnerID:        req.OwnerID,
	}
}
