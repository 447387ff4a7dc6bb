package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

// ActivitiesHandler lists and logs record activities.
type ActivitiesHandler struct {
	service *service.ActivityService
}

// NewActivitiesHandler constructs handler.
func NewActivitiesHandler(activities *service.ActivityService) *ActivitiesHandler {
	return &ActivitiesHandler{service: activities}
}

// List GET /api/activities/:record_type/:record_id?limit=&offset=.
func (h *ActivitiesHandler) List(c *fiber.Ctx) error {
	recordID, err := strconv.ParseInt(c.Params("record_id"), 10, 64)
	if err != nil {
		return apperrors.NewInvalidArgument("invalid record id", map[string]any{"record_id": c.Params("record_id")})
	}
	ref, err := service.ParseRecordRef(c.Params("record_type"), recordID)
	if err != nil {
		return err
	}
	items, err := h.service.List(c.UserContext(), ref, c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return err
	}
	out := make([]dto.ActivityResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewActivityResponse(&items[i]))
	}
	return data(c, http.StatusOK, out)
}

// Create POST /api/activities.
func (h *ActivitiesHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ActivityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ref, err := service.ParseRecordRef(req.RecordType, req.RecordID)
	if err != nil {
		return err
	}
	activity, err := h.service.Log(c.UserContext(), ref, req.ActivityType, req.Subject, req.Details, user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewActivityResponse(activity))
}
