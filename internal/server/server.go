package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service) *Server {
	s := &Server{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if cfg.Redis.Enabled {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("Redis enabled", zap.String("addr", s.redis.Options().Addr))
	}

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      s.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	cfg := s.config
	logger := s.logger

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.IsProduction()))

	router.Get("/health", s.health)

	// Initialize repositories
	repos := repository.NewRepositories(s.db.DB())
	tx := repository.NewTransactor(s.db.DB())
	storeCache := cache.New(s.redis, cfg.Redis.Prefix)

	// Initialize services
	pricing := service.NewPricingPolicy(cfg.Store)
	userService := service.NewUserService(repos.Users, repos.RefreshTokens, cfg.JWT)
	catalogService := service.NewCatalogService(repos, storeCache, cfg.Store.CatalogPageSize, logger)
	cartService := service.NewCartService(repos, tx, pricing)
	checkoutService := service.NewCheckoutService(repos, tx, pricing, cfg.Store.OrderNumberPrefix, logger)
	orderService := service.NewOrderService(repos, tx, cfg.Store.OrderPageSize, logger)
	profileService := service.NewProfileService(repos, tx)
	adminService := service.NewAdminService(repos, tx, storeCache, cfg.Store.AdminPageSize, cfg.Store.LowStockThreshold, logger)

	// Middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	optionalAuth := custommiddleware.OptionalAuthMiddleware(cfg.JWT.Secret, logger)
	session := custommiddleware.SessionMiddleware(cfg.Session, logger)

	var limiters []func(http.Handler) http.Handler
	if s.redis != nil {
		limiters = append(limiters, custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			KeyPrefix:         cfg.Redis.Prefix + ":ratelimit",
		}, logger))
	}

	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware, limiters...)

	// Shopper routes: anonymous sessions get a cart, a bearer token takes precedence
	router.Group(func(r chi.Router) {
		r.Use(session, optionalAuth)
		transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(r)
		transport.NewCartHandler(cartService, logger).RegisterRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		transport.NewCheckoutHandler(checkoutService, logger).RegisterRoutes(r)
		transport.NewOrderHandler(orderService, logger).RegisterRoutes(r)
		transport.NewProfileHandler(profileService, logger).RegisterRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(authMiddleware, custommiddleware.RequireAdmin(logger))
		transport.NewAdminHandler(adminService, logger).RegisterRoutes(r)
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health()
	status := http.StatusOK
	if health["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	if s.redis != nil {
		if err := s.redis.Ping(r.Context()).Err(); err != nil {
			health["redis"] = "down"
		} else {
			health["redis"] = "up"
		}
	}
	custommiddleware.RespondWithJSON(w, status, health)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
