package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/bookings"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/utils"
)

type BookingRequest struct {
	ShowtimeID     int64  `json:"showtimeId" validate:"required,gt=0"`
	SeatNumber     int    `json:"seatNumber" validate:"required,gte=1"`
	UserID         string `json:"userId" validate:"required,uuid4"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

type BookingUpdateRequest struct {
	ShowtimeID int64 `json:"showtimeId" validate:"required,gt=0"`
	SeatNumber int   `json:"seatNumber" validate:"required,gte=1"`
}

type Handler struct {
	Service  *bookings.BookingService
	Validate *validator.Validate
}

func NewHandler(service *bookings.BookingService) *Handler {
	return &Handler{Service: service, Validate: validator.New()}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Invalid request body: %v", err))
		return
	}
	if err := h.Validate.Struct(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Validation failed: %v", err))
		return
	}

	booking := &models.Booking{
		ShowtimeID:     req.ShowtimeID,
		SeatNumber:     req.SeatNumber,
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
	}
	created, err := h.Service.CreateBooking(r.Context(), booking)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "bookingId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, booking)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	var showtimeID int64
	if raw := r.URL.Query().Get("showtimeId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			utils.WriteError(w, apperr.InvalidRequest("Invalid showtime ID"))
			return
		}
		showtimeID = id
	}

	list, err := h.Service.ListBookings(r.Context(), userID, showtimeID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Invalid request body: %v", err))
		return
	}
	if err := h.Validate.Struct(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Validation failed: %v", err))
		return
	}

	booking, err := h.Service.UpdateBooking(r.Context(), chi.URLParam(r, "bookingId"), req.ShowtimeID, req.SeatNumber)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, booking)
}

func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.CancelBooking(r.Context(), chi.URLParam(r, "bookingId")); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Booking deleted successfully"})
}
