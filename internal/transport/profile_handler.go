package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateProfileRequest represents the editable account fields
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"max=20"`
}

// AddressRequest represents a saved address form
type AddressRequest struct {
	AddressType string `json:"address_type" validate:"omitempty,oneof=shipping billing"`
	FirstName   string `json:"first_name" validate:"required,max=50"`
	LastName    string `json:"last_name" validate:"required,max=50"`
	Company     string `json:"company" validate:"max=100"`
	Address1    string `json:"address1" validate:"required,max=200"`
	Address2    string `json:"address2" validate:"max=200"`
	City        string `json:"city" validate:"required,max=100"`
	State       string `json:"state" validate:"required,max=50"`
	ZipCode     string `json:"zip_code" validate:"required,max=20"`
	Country     string `json:"country" validate:"required,max=50"`
	Phone       string `json:"phone" validate:"max=20"`
	IsDefault   bool   `json:"is_default"`
}

// ProfileHandler serves the account page and address book
type ProfileHandler struct {
	profiles service.ProfileService
	logger   *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profiles service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// RegisterRoutes registers the profile routes under /api/profile
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/profile", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Post("/addresses", h.AddAddress)
		r.Delete("/addresses/{id}", h.DeleteAddress)
		r.Post("/addresses/{id}/default", h.SetDefaultAddress)
	})
}

// Get returns the profile with saved addresses
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "load profile")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, profile)
}

// Update handles profile edits
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), userID, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		respondServiceError(w, h.logger, err, "update profile")
		return
	}

	h.logger.Info("Profile updated", zap.String("user_id", userID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// AddAddress saves a new address
func (h *ProfileHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AddressRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	address, err := h.profiles.AddAddress(r.Context(), userID, service.AddressInput{
		AddressType: domain.AddressType(req.AddressType),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Company:     req.Company,
		Address1:    req.Address1,
		Address2:    req.Address2,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,
		Country:     req.Country,
		Phone:       req.Phone,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "add address")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, address)
}

// DeleteAddress removes a saved address
func (h *ProfileHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	addressID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.profiles.DeleteAddress(r.Context(), userID, addressID); err != nil {
		respondServiceError(w, h.logger, err, "delete address")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Address deleted successfully."})
}

// SetDefaultAddress makes an address the default for its type
func (h *ProfileHandler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	addressID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.profiles.SetDefaultAddress(r.Context(), userID, addressID); err != nil {
		respondServiceError(w, h.logger, err, "set default address")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Default address updated successfully."})
}
