package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShippingRequest is the destination entered at checkout
type ShippingRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Address1  string `json:"address1" validate:"required,max=200"`
	Address2  string `json:"address2" validate:"max=200"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=50"`
	ZipCode   string `json:"zip_code" validate:"required,max=20"`
	Country   string `json:"country" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"max=20"`
}

// PaymentRequest carries the card form. Only the method is stored; the card
// fields are validated and discarded since no gateway is charged.
type PaymentRequest struct {
	Method         string `json:"method" validate:"required,max=50"`
	CardNumber     string `json:"card_number" validate:"required,max=19"`
	CardholderName string `json:"cardholder_name" validate:"required,max=100"`
	ExpiryDate     string `json:"expiry_date" validate:"required,max=5"`
	CVV            string `json:"cvv" validate:"required,max=4"`
}

// CheckoutRequest represents the checkout form submission
type CheckoutRequest struct {
	Shipping          ShippingRequest `json:"shipping"`
	Payment           PaymentRequest  `json:"payment"`
	SelectedAddressID *uuid.UUID      `json:"selected_address_id"`
	SaveAddress       bool            `json:"save_address"`
	MakeDefault       bool            `json:"make_default"`
	Notes             string          `json:"notes" validate:"max=1000"`
}

// input converts the form into service input
func (req CheckoutRequest) input() service.CheckoutInput {
	in := service.CheckoutInput{
		Shipping: domain.ShippingSnapshot{
			FirstName: req.Shipping.FirstName,
			LastName:  req.Shipping.LastName,
			Address1:  req.Shipping.Address1,
			Address2:  req.Shipping.Address2,
			City:      req.Shipping.City,
			State:     req.Shipping.State,
			ZipCode:   req.Shipping.ZipCode,
			Country:   req.Shipping.Country,
			Phone:     req.Shipping.Phone,
		},
		PaymentMethod: req.Payment.Method,
		SaveAddress:   req.SaveAddress,
		MakeDefault:   req.MakeDefault,
		Notes:         req.Notes,
	}
	if req.SelectedAddressID != nil {
		in.SelectedAddressID = uuid.NullUUID{UUID: *req.SelectedAddressID, Valid: true}
	}
	return in
}

// CheckoutHandler turns an authenticated user's cart into an order
type CheckoutHandler struct {
	checkout service.CheckoutService
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger}
}

// RegisterRoutes registers the checkout routes under /api/checkout
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Get("/", h.Summary)
		r.Post("/", h.PlaceOrder)
		r.Get("/complete/{orderID}", h.Complete)
	})
}

// Summary returns the checkout page data
func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	summary, err := h.checkout.Summary(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "load checkout")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// PlaceOrder submits the checkout form. An empty cart is reported before
// any form errors; a rejected form is answered with the field errors and
// the reloaded checkout summary.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout form rejected", zap.String("user_id", userID.String()), zap.Error(err))

		summary, sumErr := h.checkout.Summary(r.Context(), userID)
		if sumErr != nil {
			respondServiceError(w, h.logger, sumErr, "load checkout")
			return
		}

		validationErrors := middleware.FormatValidationErrors(err)
		if len(validationErrors) == 0 {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		middleware.RespondWithValidationErrors(w, validationErrors, map[string]interface{}{"summary": summary})
		return
	}

	placed, err := h.checkout.PlaceOrder(r.Context(), userID, req.input())
	if err != nil {
		if errors.Is(err, service.ErrInsufficientStock) {
			middleware.RespondWithErrorDetails(w, http.StatusConflict, "insufficient stock", h.summaryDetails(r, userID))
			return
		}
		respondServiceError(w, h.logger, err, "place order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, placed)
}

// summaryDetails reloads the checkout summary for an error reply, or nil
// when it cannot be loaded.
func (h *CheckoutHandler) summaryDetails(r *http.Request, userID uuid.UUID) map[string]interface{} {
	summary, err := h.checkout.Summary(r.Context(), userID)
	if err != nil {
		h.logger.Debug("Could not reload checkout summary", zap.Error(err))
		return nil
	}
	return map[string]interface{}{"summary": summary}
}

// Complete returns the confirmation of a just-placed order
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.checkout.Confirmation(r.Context(), userID, orderID)
	if err != nil {
		respondServiceError(w, h.logger, err, "load order confirmation")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
