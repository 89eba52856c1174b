package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"github.com/Prince-Singh-05/Lottery-POS/internal/models"
	"github.com/Prince-Singh-05/Lottery-POS/internal/services"
)

// Services bundles the domain services the HTTP layer dispatches to.
type Services struct {
	Registry  *services.Registry
	Planner   *services.Planner
	Lifecycle *services.Lifecycle
	Reporter  *services.Reporter
	Shops     *services.Shops
}

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	svc     Services
	auth    *Authenticator
	limiter *RateLimiter
}

// NewHTTPHandler creates a new HTTPHandler. A nil limiter disables rate
// limiting of purchases and claims.
func NewHTTPHandler(svc Services, auth *Authenticator, limiter *RateLimiter) *HTTPHandler {
	return &HTTPHandler{svc: svc, auth: auth, limiter: limiter}
}

// RegisterPublicRoutes registers the routes that need no token.
func (h *HTTPHandler) RegisterPublicRoutes(router gin.IRouter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes registers the authenticated API under /api.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")
	api.Use(h.auth.Middleware())

	admin := RequireRole(models.RoleAdmin)
	owner := RequireRole(models.RoleShopOwner)
	throttle := h.throttle()

	ticket := api.Group("/ticket")
	ticket.GET("/", h.ListTickets)
	ticket.GET("/ticket-types", h.ListTicketTypes)
	ticket.POST("/createTicketType", admin, h.CreateTicketType)
	ticket.POST("/allocateTickets", admin, h.AllocateTickets)
	ticket.POST("/allocateTickets/csv", admin, h.UploadAllocationsCSV)
	ticket.POST("/allocations/:allocationId/repair", admin, h.RepairAllocation)
	ticket.GET("/shopAllocations", owner, h.ShopAllocations)
	ticket.POST("/buy", throttle, h.BuyTicket)
	ticket.POST("/claim/:ticketId", throttle, h.ClaimTicket)
	// Older clients claim with GET.
	ticket.GET("/claim/:ticketId", throttle, h.ClaimTicket)
	ticket.GET("/weeklyReport", owner, h.WeeklyReport)
	ticket.GET("/weeklyReport/export", owner, h.ExportWeeklyReportCSV)

	shop := api.Group("/shop")
	shop.GET("/", h.ListShops)
	shop.GET("/my-shops", owner, h.MyShops)
	shop.POST("/register", owner, h.RegisterShop)
	shop.GET("/:shopId/details", h.ShopDetails)
	shop.GET("/:shopId/tickets", h.ShopTickets)

	user := api.Group("/user")
	user.GET("/customerReport", h.CustomerReport)
}

func (h *HTTPHandler) throttle() gin.HandlerFunc {
	if h.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.limiter.Middleware()
}

// CreateTicketType handles the admin request for a new ticket type.
func (h *HTTPHandler) CreateTicketType(c *gin.Context) {
	var in services.CreateTicketTypeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	tt, err := h.svc.Registry.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tt)
}

// ListTicketTypes returns every ticket type.
func (h *HTTPHandler) ListTicketTypes(c *gin.Context) {
	types, err := h.svc.Registry.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

type allocationResponse struct {
	models.TicketAllocation
	TicketCount int `json:"ticketCount"`
}

// AllocateTickets reserves a range for a shop and generates its tickets.
func (h *HTTPHandler) AllocateTickets(c *gin.Context) {
	var in services.AllocateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	alloc, n, err := h.svc.Planner.Plan(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, allocationResponse{TicketAllocation: alloc, TicketCount: n})
}

// UploadAllocationsCSV plans one allocation per uploaded CSV row.
func (h *HTTPHandler) UploadAllocationsCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("allocationCSV")
	if err != nil {
		badRequest(c, "error retrieving file: %v", err)
		return
	}
	defer file.Close()

	results, err := h.svc.Planner.BulkPlan(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	logger.Infof("Processed allocation CSV: %d rows, %d failed", len(results), failed)
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"succeeded": len(results) - failed,
		"failed":    failed,
	})
}

// RepairAllocation regenerates the tickets of an allocation that has none.
func (h *HTTPHandler) RepairAllocation(c *gin.Context) {
	alloc, n, err := h.svc.Planner.Repair(c.Request.Context(), c.Param("allocationId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocationResponse{TicketAllocation: alloc, TicketCount: n})
}

// ShopAllocations lists allocations of one owned shop, or of every shop the
// caller owns when no shopId is given.
func (h *HTTPHandler) ShopAllocations(c *gin.Context) {
	ctx := c.Request.Context()
	shopIDs, err := h.callerShops(c)
	if err != nil {
		respondError(c, err)
		return
	}

	allocs := []models.TicketAllocation{}
	for _, id := range shopIDs {
		list, err := h.svc.Planner.ListByShop(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		allocs = append(allocs, list...)
	}
	c.JSON(http.StatusOK, allocs)
}

type ticketRequest struct {
	TicketID string `json:"ticketId"`
}

// BuyTicket sells an available ticket to the caller.
func (h *HTTPHandler) BuyTicket(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	if req.TicketID == "" {
		respondError(c, models.ErrMissingFields.WithMessage("please provide ticketId"))
		return
	}
	t, err := h.svc.Lifecycle.Purchase(c.Request.Context(), req.TicketID, callerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ClaimTicket claims the winnings of a ticket for the caller.
func (h *HTTPHandler) ClaimTicket(c *gin.Context) {
	t, err := h.svc.Lifecycle.Claim(c.Request.Context(), c.Param("ticketId"), callerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ListTickets returns all tickets, optionally filtered by ?shopId=.
func (h *HTTPHandler) ListTickets(c *gin.Context) {
	tickets, err := h.svc.Lifecycle.List(c.Request.Context(), models.TicketFilter{ShopID: c.Query("shopId")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// WeeklyReport returns the seven-day report for the caller's shops.
func (h *HTTPHandler) WeeklyReport(c *gin.Context) {
	shopIDs, err := h.reportShops(c)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.svc.Reporter.Weekly(c.Request.Context(), shopIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportWeeklyReportCSV downloads the claimed tickets of the weekly report.
func (h *HTTPHandler) ExportWeeklyReportCSV(c *gin.Context) {
	shopIDs, err := h.reportShops(c)
	if err != nil {
		respondError(c, err)
		return
	}

	// Rendered into a buffer so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.svc.Reporter.WeeklyCSV(c.Request.Context(), &buf, shopIDs); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment;filename=weekly_report.csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// reportShops resolves the shops a report covers: an explicit ?shopId= the
// caller may see, else every shop the caller owns, or every shop for admins.
func (h *HTTPHandler) reportShops(c *gin.Context) ([]string, error) {
	caller := callerFrom(c)
	if caller.Role == models.RoleAdmin && c.Query("shopId") == "" {
		shops, err := h.svc.Shops.List(c.Request.Context())
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(shops))
		for _, s := range shops {
			ids = append(ids, s.ID)
		}
		return ids, nil
	}
	return h.callerShops(c)
}

func (h *HTTPHandler) callerShops(c *gin.Context) ([]string, error) {
	ctx := c.Request.Context()
	caller := callerFrom(c)
	if shopID := c.Query("shopId"); shopID != "" {
		if err := h.svc.Shops.Authorize(ctx, caller, shopID); err != nil {
			return nil, err
		}
		return []string{shopID}, nil
	}
	return h.svc.Shops.OwnedIDs(ctx, caller.UserID)
}

// RegisterShop registers a shop owned by the caller.
func (h *HTTPHandler) RegisterShop(c *gin.Context) {
	var in services.RegisterShopInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	shop, err := h.svc.Shops.Register(c.Request.Context(), callerFrom(c).UserID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shop)
}

// ListShops returns every shop.
func (h *HTTPHandler) ListShops(c *gin.Context) {
	shops, err := h.svc.Shops.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shops)
}

// MyShops returns the shops owned by the caller.
func (h *HTTPHandler) MyShops(c *gin.Context) {
	shops, err := h.svc.Shops.ByOwner(c.Request.Context(), callerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shops)
}

// ShopDetails looks a shop up by its registration id.
func (h *HTTPHandler) ShopDetails(c *gin.Context) {
	shop, err := h.svc.Shops.Details(c.Request.Context(), c.Param("shopId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop)
}

// ShopTickets lists the inventory of one shop.
func (h *HTTPHandler) ShopTickets(c *gin.Context) {
	tickets, err := h.svc.Shops.Tickets(c.Request.Context(), c.Param("shopId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// CustomerReport returns the tickets bought or claimed by the caller.
func (h *HTTPHandler) CustomerReport(c *gin.Context) {
	tickets, err := h.svc.Lifecycle.CustomerTickets(c.Request.Context(), callerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}
