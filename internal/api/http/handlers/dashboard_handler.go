package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/service"
)

// DashboardHandler serves the caller's dashboard and global search.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboard}
}

// Stats GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.DashboardStatsResponse{
		LeadsCount:         stats.LeadsCount,
		OpportunitiesCount: stats.OpportunitiesCount,
		ContactsCount:      stats.ContactsCount,
		CasesByPriority:    stats.CasesByPriority,
		RecentRecords:      dto.NewRecentRecordResponses(stats.RecentRecords),
	})
}

// RecentRecords GET /api/dashboard/recent-records?limit=.
func (h *DashboardHandler) RecentRecords(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	records, err := h.service.RecentRecords(c.UserContext(), user.ID, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewRecentRecordResponses(records))
}

// Search GET /api/dashboard/search?q=&limit=.
func (h *DashboardHandler) Search(c *fiber.Ctx) error {
	var q dto.SearchQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	results, err := h.service.Search(c.UserContext(), q.Q, q.Limit)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, fiber.Map{"query": q.Q, "results": results, "total": len(results)})
}
