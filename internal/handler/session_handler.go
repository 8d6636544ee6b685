package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reliancemove/service-quote/internal/application"
	"github.com/reliancemove/service-quote/internal/backend"
	"github.com/reliancemove/service-quote/internal/common/domain"
	"github.com/reliancemove/service-quote/internal/common/response"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/domain/journey"
)

// statusClientClosedRequest marks requests abandoned by the caller.
const statusClientClosedRequest = 499

// ChangeResponse is returned by every draft mutation.
type ChangeResponse struct {
	Groups bookingDomain.Groups   `json:"groups"`
	Draft  bookingDomain.Snapshot `json:"draft"`
}

// SessionResponse describes a wizard session.
type SessionResponse struct {
	ID       uuid.UUID              `json:"id"`
	Revision uint64                 `json:"revision"`
	Draft    bookingDomain.Snapshot `json:"draft"`
}

// AddStopRequest is the body of POST /sessions/:id/stops.
type AddStopRequest struct {
	Address       string               `json:"address" binding:"required"`
	PropertyType  *string              `json:"propertyType"`
	Floor         *bookingDomain.Floor `json:"floor"`
	LiftAvailable *bool                `json:"liftAvailable"`
	DoorFlatNo    *string              `json:"doorFlatNo"`
}

// MoveStopRequest is the body of POST /sessions/:id/stops/:index/move.
type MoveStopRequest struct {
	To *int `json:"to" binding:"required"`
}

// SetItemsRequest is the body of PUT /sessions/:id/items.
type SetItemsRequest struct {
	Items []bookingDomain.Item `json:"items"`
}

// AddItemRequest is the body of POST /sessions/:id/items.
type AddItemRequest struct {
	Name string `json:"name" binding:"required"`
}

// QuantityRequest is the body of PATCH /sessions/:id/items/:name.
type QuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// VanRequest is the body of PUT /sessions/:id/van.
type VanRequest struct {
	Type string `json:"type" binding:"required"`
}

// CountRequest is the body of the dismantle and assemble PUTs.
type CountRequest struct {
	Count *int `json:"count" binding:"required"`
}

// SelectPlaceRequest is the body of POST /sessions/:id/addresses/:role/place.
type SelectPlaceRequest struct {
	Description string `json:"description" binding:"required"`
	PlaceID     string `json:"placeId" binding:"required"`
}

// DirectionsResultRequest is a directions result computed by the browser.
// Key, when set, must match the waypoint key the result was requested for.
type DirectionsResultRequest struct {
	Key string `json:"key"`
	journey.Response
}

// SessionHandler handles HTTP requests for wizard sessions.
type SessionHandler struct {
	sessions *application.SessionManager
	quotes   *application.QuoteService
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *application.SessionManager, quotes *application.QuoteService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, quotes: quotes, logger: logger}
}

// RegisterRoutes registers all session routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/api/v1/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.DeleteSession)
		sessions.POST("/:id/reset", h.ResetDraft)

		sessions.PATCH("/:id/addresses/:role", h.UpdateAddress)
		sessions.POST("/:id/addresses/:role/place", h.SelectPlace)

		sessions.POST("/:id/stops", h.AddStop)
		sessions.PATCH("/:id/stops/:index", h.UpdateStop)
		sessions.DELETE("/:id/stops/:index", h.RemoveStop)
		sessions.POST("/:id/stops/:index/move", h.MoveStop)

		sessions.PUT("/:id/items", h.SetItems)
		sessions.POST("/:id/items", h.AddItem)
		sessions.PATCH("/:id/items/:name", h.UpdateItemQuantity)
		sessions.DELETE("/:id/items/:name", h.RemoveItem)

		sessions.PUT("/:id/van", h.SetVan)
		sessions.POST("/:id/van/toggle", h.ToggleVan)
		sessions.PATCH("/:id/schedule", h.SetSchedule)
		sessions.PUT("/:id/dismantle", h.SetItemsToDismantle)
		sessions.PUT("/:id/assemble", h.SetItemsToAssemble)
		sessions.PATCH("/:id/services", h.SetAdditionalServices)
		sessions.PATCH("/:id/customer", h.SetCustomerDetails)
		sessions.PATCH("/:id/service-details", h.SetServiceDetails)

		sessions.POST("/:id/price", h.RecomputePrice)
		sessions.GET("/:id/directions", h.GetDirectionsRequest)
		sessions.POST("/:id/directions", h.ApplyDirections)

		sessions.GET("/:id/autocomplete", h.Autocomplete)
		sessions.GET("/:id/postcode/:placeId", h.PostalCode)

		sessions.POST("/:id/quote", h.SubmitQuote)
		sessions.POST("/:id/quote/mail", h.SendQuoteMail)
		sessions.POST("/:id/checkout", h.StartCheckout)
		sessions.POST("/:id/payment/confirm", h.ConfirmPayment)
		sessions.GET("/:id/quotes", h.ListSessionQuotes)
	}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create()
	response.Created(c, toSessionResponse(sess))
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, toSessionResponse(sess))
}

// DeleteSession handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session ID")
		return
	}
	if err := h.sessions.Delete(id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ResetDraft handles POST /api/v1/sessions/:id/reset.
func (h *SessionHandler) ResetDraft(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	groups, err := sess.Store().Reset()
	h.respondChange(c, sess, groups, err)
}

// UpdateAddress handles PATCH /api/v1/sessions/:id/addresses/:role.
func (h *SessionHandler) UpdateAddress(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	role, err := bookingDomain.ParseRole(c.Param("role"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var patch bookingDomain.AddressPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().UpdateAddress(role, patch)
	h.respondChange(c, sess, groups, err)
}

// SelectPlace handles POST /api/v1/sessions/:id/addresses/:role/place.
func (h *SessionHandler) SelectPlace(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	role, err := bookingDomain.ParseRole(c.Param("role"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req SelectPlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.SelectPlace(c.Request.Context(), role, req.Description, req.PlaceID)
	h.respondChange(c, sess, groups, err)
}

// AddStop handles POST /api/v1/sessions/:id/stops.
func (h *SessionHandler) AddStop(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req AddStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stop := bookingDomain.NewStop(req.Address, bookingDomain.StopPatch{
		PropertyType:  req.PropertyType,
		Floor:         req.Floor,
		LiftAvailable: req.LiftAvailable,
		DoorFlatNo:    req.DoorFlatNo,
	})
	groups, err := sess.Store().AddStop(stop)
	h.respondChange(c, sess, groups, err)
}

// UpdateStop handles PATCH /api/v1/sessions/:id/stops/:index.
func (h *SessionHandler) UpdateStop(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := stopIndex(c)
	if !ok {
		return
	}

	var patch bookingDomain.StopPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().UpdateStop(index, patch)
	h.respondChange(c, sess, groups, err)
}

// RemoveStop handles DELETE /api/v1/sessions/:id/stops/:index.
func (h *SessionHandler) RemoveStop(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := stopIndex(c)
	if !ok {
		return
	}

	groups, err := sess.Store().RemoveStop(index)
	h.respondChange(c, sess, groups, err)
}

// MoveStop handles POST /api/v1/sessions/:id/stops/:index/move.
func (h *SessionHandler) MoveStop(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	from, ok := stopIndex(c)
	if !ok {
		return
	}

	var req MoveStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().MoveStop(from, *req.To)
	h.respondChange(c, sess, groups, err)
}

// SetItems handles PUT /api/v1/sessions/:id/items.
func (h *SessionHandler) SetItems(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req SetItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().SetItems(req.Items)
	h.respondChange(c, sess, groups, err)
}

// AddItem handles POST /api/v1/sessions/:id/items.
func (h *SessionHandler) AddItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().AddItem(req.Name)
	h.respondChange(c, sess, groups, err)
}

// UpdateItemQuantity handles PATCH /api/v1/sessions/:id/items/:name.
func (h *SessionHandler) UpdateItemQuantity(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().UpdateItemQuantity(c.Param("name"), *req.Quantity)
	h.respondChange(c, sess, groups, err)
}

// RemoveItem handles DELETE /api/v1/sessions/:id/items/:name.
func (h *SessionHandler) RemoveItem(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	groups, err := sess.Store().RemoveItem(c.Param("name"))
	h.respondChange(c, sess, groups, err)
}

// SetVan handles PUT /api/v1/sessions/:id/van.
func (h *SessionHandler) SetVan(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req VanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	vanType, err := bookingDomain.ParseVanType(req.Type)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().SetVan(vanType)
	h.respondChange(c, sess, groups, err)
}

// ToggleVan handles POST /api/v1/sessions/:id/van/toggle.
func (h *SessionHandler) ToggleVan(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	groups, err := sess.Store().ToggleVan()
	h.respondChange(c, sess, groups, err)
}

// SetSchedule handles PATCH /api/v1/sessions/:id/schedule.
func (h *SessionHandler) SetSchedule(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var patch bookingDomain.SchedulePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().SetSchedule(patch)
	h.respondChange(c, sess, groups, err)
}

// SetItemsToDismantle handles PUT /api/v1/sessions/:id/dismantle.
func (h *SessionHandler) SetItemsToDismantle(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req CountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().SetItemsToDismantle(*req.Count)
	h.respondChange(c, sess, groups, err)
}

// SetItemsToAssemble handles PUT /api/v1/sessions/:id/assemble.
func (h *SessionHandler) SetItemsToAssemble(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req CountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().SetItemsToAssemble(*req.Count)
	h.respondChange(c, sess, groups, err)
}

// SetAdditionalServices handles PATCH /api/v1/sessions/:id/services.
func (h *SessionHandler) SetAdditionalServices(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var patch bookingDomain.AdditionalServicesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().SetAdditionalServices(patch)
	h.respondChange(c, sess, groups, err)
}

// SetCustomerDetails handles PATCH /api/v1/sessions/:id/customer.
func (h *SessionHandler) SetCustomerDetails(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var patch bookingDomain.CustomerDetailsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().SetCustomerDetails(patch)
	h.respondChange(c, sess, groups, err)
}

// SetServiceDetails handles PATCH /api/v1/sessions/:id/service-details.
func (h *SessionHandler) SetServiceDetails(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var patch bookingDomain.ServiceDetailsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := sess.Store().SetServiceDetails(patch)
	h.respondChange(c, sess, groups, err)
}

// RecomputePrice handles POST /api/v1/sessions/:id/price.
func (h *SessionHandler) RecomputePrice(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	gen, err := sess.Price().Trigger()
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Accepted(c, gin.H{"generation": gen})
}

// GetDirectionsRequest handles GET /api/v1/sessions/:id/directions. It returns
// the request the browser should send to the mapping provider.
func (h *SessionHandler) GetDirectionsRequest(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	req, valid := sess.Journey().Request()
	if !valid {
		response.Error(c, domain.NewValidationError("pickup and delivery locations are required for a route"))
		return
	}
	response.Success(c, gin.H{"key": req.Key(), "request": req})
}

// ApplyDirections handles POST /api/v1/sessions/:id/directions.
func (h *SessionHandler) ApplyDirections(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req DirectionsResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	applied, err := sess.Journey().Apply(req.Key, req.Response)
	if err != nil {
		response.Success(c, gin.H{"applied": false, "reason": err.Error(), "draft": sess.Snapshot()})
		return
	}
	response.Success(c, gin.H{"applied": applied, "draft": sess.Snapshot()})
}

// Autocomplete handles GET /api/v1/sessions/:id/autocomplete?field=&q=.
// A request replaced by a newer one for the same field gets 409.
func (h *SessionHandler) Autocomplete(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	field := c.DefaultQuery("field", application.FieldPickup)

	predictions, err := sess.Autocomplete(c.Request.Context(), field, c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, predictions)
}

// PostalCode handles GET /api/v1/sessions/:id/postcode/:placeId.
func (h *SessionHandler) PostalCode(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	postcode, err := sess.PostalCode(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"postcode": postcode})
}

// SubmitQuote handles POST /api/v1/sessions/:id/quote. The first submission
// creates the quote (201); later ones update it.
func (h *SessionHandler) SubmitQuote(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	result, err := h.quotes.SubmitQuote(c.Request.Context(), sess)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if result.Created {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

// SendQuoteMail handles POST /api/v1/sessions/:id/quote/mail.
func (h *SessionHandler) SendQuoteMail(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.quotes.SendQuoteMail(c.Request.Context(), sess); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"quotationRef": sess.Snapshot().QuoteRef})
}

// StartCheckout handles POST /api/v1/sessions/:id/checkout.
func (h *SessionHandler) StartCheckout(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	checkoutID, err := h.quotes.StartCheckout(c.Request.Context(), sess)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"sessionId": checkoutID})
}

// ConfirmPayment handles POST /api/v1/sessions/:id/payment/confirm?session_id=.
func (h *SessionHandler) ConfirmPayment(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	bookingRef, err := h.quotes.ConfirmPayment(c.Request.Context(), sess, c.Query("session_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"bookingRef": bookingRef, "draft": sess.Snapshot()})
}

// ListSessionQuotes handles GET /api/v1/sessions/:id/quotes.
func (h *SessionHandler) ListSessionQuotes(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	quotes, err := h.quotes.GetSessionQuotes(c.Request.Context(), sess.ID())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, quotes)
}

func (h *SessionHandler) session(c *gin.Context) (*application.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session ID")
		return nil, false
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) respondChange(c *gin.Context, sess *application.Session, groups bookingDomain.Groups, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	if groups == nil {
		groups = bookingDomain.Groups{}
	}
	response.Success(c, ChangeResponse{Groups: groups, Draft: sess.Snapshot()})
}

// writeError maps session and backend failures onto the response envelope.
func (h *SessionHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrSessionClosed), errors.Is(err, application.ErrDebouncerStopped):
		response.Error(c, domain.NewConflictError("session closed"))
	case application.IsSuperseded(err):
		response.Error(c, domain.NewConflictError("superseded by a newer query"))
	case backend.IsTransient(err):
		h.logger.Warn("backend lookup failed", zap.Error(err), zap.String("path", c.FullPath()))
		response.Error(c, domain.NewUpstreamError(err.Error()))
	case c.Request.Context().Err() != nil:
		c.AbortWithStatus(statusClientClosedRequest)
	default:
		response.Error(c, err)
	}
}

func stopIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(strings.TrimSpace(c.Param("index")))
	if err != nil {
		response.BadRequest(c, "invalid stop index")
		return 0, false
	}
	return index, true
}

func toSessionResponse(sess *application.Session) SessionResponse {
	return SessionResponse{
		ID:       sess.ID(),
		Revision: sess.Store().Revision(),
		Draft:    sess.Snapshot(),
	}
}
