package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-moviebooking/internal/bookings"
	bookingsapi "ms-moviebooking/internal/bookings/api"
	bookingsdb "ms-moviebooking/internal/bookings/db"
	"ms-moviebooking/internal/cache"
	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/database/migrations"
	"ms-moviebooking/internal/kafka"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/movies"
	moviesapi "ms-moviebooking/internal/movies/api"
	moviesdb "ms-moviebooking/internal/movies/db"
	"ms-moviebooking/internal/showtimes"
	showtimesapi "ms-moviebooking/internal/showtimes/api"
	showtimesdb "ms-moviebooking/internal/showtimes/db"
	"ms-moviebooking/internal/theaters"
	theatersapi "ms-moviebooking/internal/theaters/api"
	theatersdb "ms-moviebooking/internal/theaters/db"
	"ms-moviebooking/internal/utils"
)

func main() {
	// Missing .env is fine, production reads the real environment.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	// --- PostgreSQL ---
	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open Postgres connection: %v", err))
	}
	defer sqldb.Close()

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	log.Info("DATABASE", "Connected to Postgres")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	// --- Migrations ---
	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	defer runner.Close()

	// --- Redis (catalog cache, optional) ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("CACHE", fmt.Sprintf("Redis unavailable, running without cache: %v", err))
			redisClient = nil
		} else {
			log.Info("CACHE", "Connected to Redis")
		}
	}
	catalogCache := cache.New(redisClient, log)

	// --- Kafka ---
	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		topics := []string{
			cfg.Kafka.Topics.BookingCreated,
			cfg.Kafka.Topics.BookingCancelled,
			cfg.Kafka.Topics.ShowtimeCreated,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to ensure topics: %v", err))
		}
	}
	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()

	// --- Services ---
	movieService := movies.NewMovieService(&moviesdb.DB{Bun: bunDB}, catalogCache, log)
	theaterService := theaters.NewTheaterService(&theatersdb.DB{Bun: bunDB}, catalogCache, log)
	showtimeService := showtimes.NewShowtimeService(&showtimesdb.DB{Bun: bunDB}, movieService, theaterService, producer, clock.System{}, log)
	bookingService := bookings.NewBookingService(&bookingsdb.DB{Bun: bunDB}, producer, clock.System{}, log)

	movieHandler := moviesapi.NewHandler(movieService)
	theaterHandler := theatersapi.NewHandler(theaterService)
	showtimeHandler := showtimesapi.NewHandler(showtimeService)
	bookingHandler := bookingsapi.NewHandler(bookingService)

	// --- Router ---
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Booking service is healthy", nil))
	})

	r.Route("/movies", func(r chi.Router) {
		r.Post("/", movieHandler.CreateMovie)
		r.Get("/", movieHandler.ListMovies)
		r.Get("/{movieId}", movieHandler.GetMovie)
		r.Put("/{movieId}", movieHandler.UpdateMovie)
		r.Delete("/{movieId}", movieHandler.DeleteMovie)
	})

	r.Route("/theaters", func(r chi.Router) {
		r.Post("/", theaterHandler.CreateTheater)
		r.Get("/", theaterHandler.ListTheaters)
		r.Get("/{theaterId}", theaterHandler.GetTheater)
		r.Put("/{theaterId}", theaterHandler.UpdateTheater)
		r.Delete("/{theaterId}", theaterHandler.DeleteTheater)
	})

	r.Route("/showtimes", func(r chi.Router) {
		r.Post("/", showtimeHandler.CreateShowtime)
		r.Get("/", showtimeHandler.ListShowtimes)
		r.Get("/{showtimeId}", showtimeHandler.GetShowtime)
		r.Put("/{showtimeId}", showtimeHandler.UpdateShowtime)
		r.Delete("/{showtimeId}", showtimeHandler.DeleteShowtime)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", bookingHandler.CreateBooking)
		r.Get("/", bookingHandler.ListBookings)
		r.Get("/{bookingId}", bookingHandler.GetBooking)
		r.Put("/{bookingId}", bookingHandler.UpdateBooking)
		r.Delete("/{bookingId}", bookingHandler.DeleteBooking)
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Booking service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received, cleaning up")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("SERVER", "Server exited gracefully")
}
