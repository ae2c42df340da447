package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"ms-moviebooking/internal/apperr"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/movies"
	"ms-moviebooking/internal/utils"
)

type MovieRequest struct {
	Title       string  `json:"title" validate:"required"`
	Genre       string  `json:"genre" validate:"required"`
	Duration    int     `json:"duration" validate:"required,gt=0"`
	Rating      float64 `json:"rating" validate:"gte=0,lte=10"`
	ReleaseYear int     `json:"releaseYear" validate:"omitempty,gte=1888"`
}

// MovieUpdateRequest carries a partial update. Absent fields keep their
// stored values.
type MovieUpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1"`
	Genre       *string  `json:"genre" validate:"omitempty,min=1"`
	Duration    *int     `json:"duration" validate:"omitempty,gt=0"`
	Rating      *float64 `json:"rating" validate:"omitempty,gte=0,lte=10"`
	ReleaseYear *int     `json:"releaseYear" validate:"omitempty,gte=1888"`
}

type Handler struct {
	Service  *movies.MovieService
	Validate *validator.Validate
}

func NewHandler(service *movies.MovieService) *Handler {
	return &Handler{Service: service, Validate: validator.New()}
}

func (h *Handler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	movie := &models.Movie{
		Title:       req.Title,
		Genre:       req.Genre,
		Duration:    req.Duration,
		Rating:      req.Rating,
		ReleaseYear: req.ReleaseYear,
	}
	if err := h.Service.CreateMovie(r.Context(), movie); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, movie)
}

func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	movie, err := h.Service.GetMovie(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, movie)
}

func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	genre := r.URL.Query().Get("genre")

	list, err := h.Service.ListMovies(r.Context(), title, genre)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var req MovieUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Invalid request body: %v", err))
		return
	}
	if err := h.Validate.Struct(&req); err != nil {
		utils.WriteError(w, apperr.InvalidRequest("Validation failed: %v", err))
		return
	}

	movie, err := h.Service.GetMovie(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if req.Title != nil {
		movie.Title = *req.Title
	}
	if req.Genre != nil {
		movie.Genre = *req.Genre
	}
	if req.Duration != nil {
		movie.Duration = *req.Duration
	}
	if req.Rating != nil {
		movie.Rating = *req.Rating
	}
	if req.ReleaseYear != nil {
		movie.ReleaseYear = *req.ReleaseYear
	}

	if err := h.Service.UpdateMovie(r.Context(), movie); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, movie)
}

func (h *Handler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.Service.DeleteMovie(r.Context(), id); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Movie deleted successfully"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*MovieRequest, bool) {
	var req MovieRequest
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
	id, err := strconv.ParseInt(chi.URLParam(r, "movieId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidRequest("Invalid movie ID")
	}
	return id, nil
}
