package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{service: audit}
}

// List GET /api/audit-logs.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	var q dto.AuditLogQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), service.AuditListFilter{
		PageRequest: service.PageRequest{Page: q.Page, PageSize: q.PageSize},
		UserID:      optionalID(q.UserID),
		TargetTable: q.TargetTable,
		TargetID:    optionalID(q.TargetID),
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, toPage(page, dto.NewAuditLogResponse))
}
