// handlers.go
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

// Package handlers exposes the marketplace operations over HTTP.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/entitlement"
	"github.com/localnerve/propmarket/internal/lifecycle"
	"github.com/localnerve/propmarket/internal/matching"
	"github.com/localnerve/propmarket/internal/middleware"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/sirupsen/logrus"
)

// Handler serves the marketplace API
type Handler struct {
	Store        *repository.Store
	Lifecycle    *lifecycle.Controller
	Gate         *access.Gate
	Entitlements *entitlement.Service
	Matching     *matching.Orchestrator
	Log          *logrus.Entry
}

// Routes registers every authenticated route on router
func (h *Handler) Routes(router fiber.Router) {
	for _, entityType := range []models.EntityType{models.EntityProperty, models.EntityDemand} {
		group := router.Group("/" + collection(entityType))
		group.Post("/", h.Submit(entityType))
		group.Get("/:id", h.Get(entityType))
		group.Put("/:id", h.Update(entityType))
		group.Delete("/:id", h.Delete(entityType))
		group.Post("/:id/decision", h.Decide(entityType))
		group.Post("/:id/toggle", h.Toggle(entityType))
	}
	router.Post("/properties/:id/reserve", h.Reserve)

	router.Post("/access-codes", h.IssueCode)
	router.Post("/access-codes/verify", h.VerifyCode)
	router.Post("/loi/request", h.RequestLOI)
	router.Post("/loi/sign", h.SignLOI)

	router.Post("/contracts/request", h.RequestContract)
	router.Post("/contracts/sign", h.SignContract)
	router.Get("/declarations/status", h.DeclarationStatus)
	router.Post("/declarations/request", h.RequestDeclaration)
	router.Post("/declarations/verify", h.VerifyDeclaration)

	router.Post("/matches/compute", middleware.AuthAdmin(), h.ComputeMatches)
	router.Get("/matches", h.ListMatches)
	router.Patch("/matches/:id", h.SetMatchStatus)

	router.Get("/notifications", h.ListNotifications)
	router.Post("/notifications/:id/read", h.MarkNotificationRead)

	router.Get("/me", h.Me)
	router.Put("/me/preferences", h.UpdatePreferences)
}

func collection(entityType models.EntityType) string {
	if entityType == models.EntityDemand {
		return "demands"
	}
	return "properties"
}
