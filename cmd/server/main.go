// main.go
//
// Real-estate marketplace service: listings, demands, entitlements and matching
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of propmarket.
// propmarket is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// propmarket is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with propmarket.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/audit"
	"github.com/localnerve/propmarket/internal/config"
	"github.com/localnerve/propmarket/internal/database"
	"github.com/localnerve/propmarket/internal/entitlement"
	"github.com/localnerve/propmarket/internal/handlers"
	"github.com/localnerve/propmarket/internal/lifecycle"
	"github.com/localnerve/propmarket/internal/mailer"
	"github.com/localnerve/propmarket/internal/matching"
	"github.com/localnerve/propmarket/internal/middleware"
	"github.com/localnerve/propmarket/internal/notify"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/services"
	"github.com/sirupsen/logrus"

	_ "github.com/localnerve/propmarket/docs/api" // Swagger docs
)

// @title PropMarket API
// @version 1.0.0
// @description Real estate marketplace core: listing lifecycle, gated access, matching and brokerage entitlements
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/propmarket
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	// Load configuration
	if err := config.LoadEnvFile(envFilename); err != nil {
		logrus.Fatalf("Failed to load environment: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	base := cfg.Logger()
	log := base.WithField("component", "server")

	// Connect to database
	db, err := database.Connect(cfg, base.WithField("component", "database"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	store := repository.New(db)

	// Outbound mail and notifications
	provider, err := mailer.New(context.Background(), cfg.Mailer(), base.WithField("component", "mailer"))
	if err != nil {
		log.Fatalf("Failed to configure mail providers: %v", err)
	}
	renderer, err := notify.NewRenderer()
	if err != nil {
		log.Fatalf("Failed to parse notification templates: %v", err)
	}
	dispatcher := notify.NewDispatcher(store, provider, renderer, cfg.PublicBaseURL, base.WithField("component", "notify"))

	// Audit log, optionally mirrored to NATS
	auditLog := base.WithField("component", "audit")
	var publisher audit.Publisher
	if cfg.NATSURL != "" {
		nc, err := audit.Connect(cfg.NATSURL, auditLog)
		if err != nil {
			log.WithError(err).Warn("Audit events will not be published")
		} else {
			defer nc.Drain()
			publisher = nc
		}
	}
	recorder := audit.NewRecorder(store, publisher, auditLog)

	// Core services
	gate := access.NewGate(store, recorder, dispatcher, base.WithField("component", "access"))
	orchestrator := matching.NewOrchestrator(store, gate, dispatcher, base.WithField("component", "matching"))
	controller := lifecycle.NewController(store, recorder, dispatcher, orchestrator, base.WithField("component", "lifecycle"))
	entitlements := entitlement.NewService(store, controller, recorder, dispatcher, base.WithField("component", "entitlement"))

	h := &handlers.Handler{
		Store:        store,
		Lifecycle:    controller,
		Gate:         gate,
		Entitlements: entitlements,
		Matching:     orchestrator,
		Log:          base.WithField("component", "http"),
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(h.Log),
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: base.WriterLevel(logrus.InfoLevel)}))
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("propmarket")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", handlers.Health(cfg, db, base.WithField("component", "health")))

	// API routes under /api, all authenticated
	authorizer := services.NewAuthorizer(cfg, base.WithField("component", "authorizer"))
	api := app.Group("/api", middleware.VersionMiddleware(), middleware.Auth(authorizer, store, h.Log))
	h.Routes(api)

	// 404 handler
	app.Use(handlers.NotFound)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.WithFields(logrus.Fields{
		"port":           cfg.Port,
		"db_type":        cfg.DBType,
		"mail_providers": provider.Name(),
	}).Info("Starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Info("Server stopped")
}
