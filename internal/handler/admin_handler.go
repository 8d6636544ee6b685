package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reliancemove/service-quote/internal/application"
	"github.com/reliancemove/service-quote/internal/common/middleware"
	"github.com/reliancemove/service-quote/internal/common/response"
)

// AdminQuoteHandler handles admin HTTP requests for the quote ledger.
type AdminQuoteHandler struct {
	service *application.QuoteService
}

// NewAdminQuoteHandler creates a new AdminQuoteHandler.
func NewAdminQuoteHandler(service *application.QuoteService) *AdminQuoteHandler {
	return &AdminQuoteHandler{service: service}
}

// RegisterRoutes registers admin quote routes behind the shared admin token.
func (h *AdminQuoteHandler) RegisterRoutes(r *gin.RouterGroup, adminToken string) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.RequireAdminToken(adminToken))
	{
		admin.GET("/quotes", h.ListQuotes)
		admin.GET("/stats/quotes", h.QuoteStats)
	}
}

// ListQuotes handles GET /api/v1/admin/quotes.
func (h *AdminQuoteHandler) ListQuotes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	quotes, total, err := h.service.ListAllQuotes(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, quotes, total, page, limit)
}

// QuoteStats handles GET /api/v1/admin/stats/quotes.
func (h *AdminQuoteHandler) QuoteStats(c *gin.Context) {
	stats, err := h.service.GetQuoteStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
