package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/showtimes"
	"ms-moviebooking/internal/utils"
)

type ShowtimeRequest struct {
	MovieID   int64      `json:"movieId" validate:"required,gt=0"`
	TheaterID int64      `json:"theaterId" validate:"required,gt=0"`
	StartTime time.Time  `json:"startTime" validate:"required"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Price     float64    `json:"price" validate:"gte=0"`
}

// ShowtimeUpdateRequest carries a partial update. Absent fields keep
// their stored values.
type ShowtimeUpdateRequest struct {
	MovieID   *int64     `json:"movieId" validate:"omitempty,gt=0"`
	TheaterID *int64     `json:"theaterId" validate:"omitempty,gt=0"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Price     *float64   `json:"price" validate:"omitempty,gte=0"`
}

type Handler struct {
	Service  *showtimes.ShowtimeService
	Validate *validator.Validate
}

func NewHandler(service *showtimes.ShowtimeService) *Handler {
	return &Handler{Service: service, Validate: validator.New()}
}

func (h *Handler) CreateShowtime(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	showtime := &models.Showtime{
		MovieID:   req.MovieID,
		TheaterID: req.TheaterID,
		StartTime: req.StartTime,
		Price:     req.Price,
	}
	if err := h.Service.CreateShowtime(r.Context(), showtime, req.EndTime); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, showtime)
}

func (h *Handler) GetShowtime(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	showtime, err := h.Service.GetShowtime(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, showtime)
}

func (h *Handler) ListShowtimes(w http.ResponseWriter, r *http.Request) {
	movieID := parseQueryID(r, "movieId")
	theaterID := parseQueryID(r, "theaterId")

	list, err := h.Service.ListShowtimes(r.Context(), movieID, theaterID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateShowtime(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var req ShowtimeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Invalid request body: %v", err))
		return
	}
	if err := h.Validate.Struct(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Validation failed: %v", err))
		return
	}

	existing, err := h.Service.GetShowtime(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	showtime := &models.Showtime{
		ID:        id,
		MovieID:   existing.MovieID,
		TheaterID: existing.TheaterID,
		StartTime: existing.StartTime,
		Price:     existing.Price,
	}
	if req.MovieID != nil {
		showtime.MovieID = *req.MovieID
	}
	if req.TheaterID != nil {
		showtime.TheaterID = *req.TheaterID
	}
	if req.StartTime != nil {
		showtime.StartTime = *req.StartTime
	}
	if req.Price != nil {
		showtime.Price = *req.Price
	}

	// Without an explicit end time the stored one is kept, unless the
	// movie or start changed and the end has to be derived again.
	endTime := req.EndTime
	if endTime == nil {
		if req.MovieID == nil && req.StartTime == nil {
			endTime = &existing.EndTime
		}
	}

	if err := h.Service.UpdateShowtime(r.Context(), showtime, endTime); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, showtime)
}

func (h *Handler) DeleteShowtime(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.Service.DeleteShowtime(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Showtime deleted successfully"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*ShowtimeRequest, bool) {
	var req ShowtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Invalid request body: %v", err))
		return nil, false
	}
	if err := h.Validate.Struct(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Validation failed: %v", err))
		return nil, false
	}
	return &req, true
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "showtimeId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidRequest("Invalid showtime ID")
	}
	return id, nil
}

func parseQueryID(r *http.Request, key string) int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
