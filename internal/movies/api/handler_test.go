package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-moviebooking/internal/cache"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/movies"
	"ms-moviebooking/internal/movies/api"
	moviesdb "ms-moviebooking/internal/movies/db"
)

func setupServer(t *testing.T) *httptest.Server {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.NewCreateTable().Model((*models.Movie)(nil)).Exec(context.Background())
	require.NoError(t, err)

	service := movies.NewMovieService(&moviesdb.DB{Bun: bunDB}, cache.New(nil, nil), nil)
	handler := api.NewHandler(service)

	r := chi.NewRouter()
	r.Route("/movies", func(r chi.Router) {
		r.Post("/", handler.CreateMovie)
		r.Get("/", handler.ListMovies)
		r.Get("/{movieId}", handler.GetMovie)
		r.Put("/{movieId}", handler.UpdateMovie)
		r.Delete("/{movieId}", handler.DeleteMovie)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func createMovie(t *testing.T, server *httptest.Server, body map[string]interface{}) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/movies", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestMovieLifecycle(t *testing.T) {
	server := setupServer(t)

	resp := createMovie(t, server, map[string]interface{}{
		"title":       "The Matrix",
		"genre":       "Sci-Fi",
		"duration":    136,
		"rating":      8.7,
		"releaseYear": 1999,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Movie
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotZero(t, created.ID)

	getResp, err := http.Get(fmt.Sprintf("%s/movies/%d", server.URL, created.ID))
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	// Update
	update := map[string]interface{}{
		"title":       "The Matrix",
		"genre":       "Sci-Fi",
		"duration":    136,
		"rating":      8.8,
		"releaseYear": 1999,
	}
	data, _ := json.Marshal(update)
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/movies/%d", server.URL, created.ID), bytes.NewReader(data))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer putResp.Body.Close()
	assert.Equal(t, http.StatusOK, putResp.StatusCode)

	// Delete
	req, err = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/movies/%d", server.URL, created.ID), nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	var msg map[string]string
	require.NoError(t, json.NewDecoder(delResp.Body).Decode(&msg))
	assert.Equal(t, "Movie deleted successfully", msg["message"])

	getResp, err = http.Get(fmt.Sprintf("%s/movies/%d", server.URL, created.ID))
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestUpdateMoviePartialBody(t *testing.T) {
	server := setupServer(t)

	resp := createMovie(t, server, map[string]interface{}{
		"title":       "Heat",
		"genre":       "Crime",
		"duration":    170,
		"rating":      8.2,
		"releaseYear": 1995,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Movie
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	// Only the rating is sent; everything else must survive the update.
	data, _ := json.Marshal(map[string]interface{}{"rating": 8.3})
	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/movies/%d", server.URL, created.ID), bytes.NewReader(data))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer putResp.Body.Close()
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	var updated models.Movie
	require.NoError(t, json.NewDecoder(putResp.Body).Decode(&updated))
	assert.Equal(t, 8.3, updated.Rating)
	assert.Equal(t, "Heat", updated.Title)
	assert.Equal(t, "Crime", updated.Genre)
	assert.Equal(t, 170, updated.Duration)
	assert.Equal(t, 1995, updated.ReleaseYear)
}

func TestCreateMovieValidation(t *testing.T) {
	server := setupServer(t)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"genre": "Sci-Fi", "duration": 100}},
		{"zero duration", map[string]interface{}{"title": "X", "genre": "Sci-Fi", "duration": 0}},
		{"rating out of range", map[string]interface{}{"title": "X", "genre": "Sci-Fi", "duration": 100, "rating": 11.0}},
		{"release year too early", map[string]interface{}{"title": "X", "genre": "Sci-Fi", "duration": 100, "releaseYear": 1700}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := createMovie(t, server, tc.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestListMoviesEndpoint(t *testing.T) {
	server := setupServer(t)

	for _, m := range []map[string]interface{}{
		{"title": "The Matrix", "genre": "Sci-Fi", "duration": 136},
		{"title": "Heat", "genre": "Crime", "duration": 170},
	} {
		resp := createMovie(t, server, m)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, err := http.Get(server.URL + "/movies?genre=Crime")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list []models.Movie
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "Heat", list[0].Title)
}

func TestGetMovieInvalidID(t *testing.T) {
	server := setupServer(t)

	resp, err := http.Get(server.URL + "/movies/abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
