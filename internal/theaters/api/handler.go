package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/theaters"
	"ms-moviebooking/internal/utils"
)

type TheaterRequest struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,gte=1,lte=1000"`
}

// TheaterUpdateRequest carries a partial update. Absent fields keep
// their stored values.
type TheaterUpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Capacity *int    `json:"capacity" validate:"omitempty,gte=1,lte=1000"`
}

type Handler struct {
	Service  *theaters.TheaterService
	Validate *validator.Validate
}

func NewHandler(service *theaters.TheaterService) *Handler {
	return &Handler{Service: service, Validate: validator.New()}
}

func (h *Handler) CreateTheater(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	theater := &models.Theater{Name: req.Name, Capacity: req.Capacity}
	if err := h.Service.CreateTheater(r.Context(), theater); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, theater)
}

func (h *Handler) GetTheater(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	theater, err := h.Service.GetTheater(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, theater)
}

func (h *Handler) ListTheaters(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListTheaters(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateTheater(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var req TheaterUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Invalid request body: %v", err))
		return
	}
	if err := h.Validate.Struct(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Validation failed: %v", err))
		return
	}

	theater, err := h.Service.GetTheater(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if req.Name != nil {
		theater.Name = *req.Name
	}
	if req.Capacity != nil {
		theater.Capacity = *req.Capacity
	}

	if err := h.Service.UpdateTheater(r.Context(), theater); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, theater)
}

func (h *Handler) DeleteTheater(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.Service.DeleteTheater(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Theater deleted successfully"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*TheaterRequest, bool) {
	var req TheaterRequest
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
	id, err := strconv.ParseInt(chi.URLParam(r, "theaterId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidRequest("Invalid theater ID")
	}
	return id, nil
}
