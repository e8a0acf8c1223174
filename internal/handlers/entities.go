// entities.go
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

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/lifecycle"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/localnerve/propmarket/internal/utils"
)

// EntityResponse is the result of reading a property or demand through the gate
type EntityResponse struct {
	HasAccess bool          `json:"has_access"`
	Reason    string        `json:"reason"`
	Entity    models.Entity `json:"entity,omitempty"`
	Stub      *access.Stub  `json:"stub,omitempty"`
}

// StatusResponse reports the status an entity moved to
type StatusResponse struct {
	ID     string        `json:"id"`
	Status models.Status `json:"status"`
}

// ReserveRequest toggles the reservation of a property
type ReserveRequest struct {
	Reserved bool       `json:"reserved"`
	Until    *time.Time `json:"until"`
}

// Submit handles POST /api/properties and POST /api/demands
// @Summary Submit a property or demand
// @Description Creates a listing in the pending status. A demand with several transaction or property types is stored as one row per combination.
// @Tags Entities
// @Accept json
// @Produce json
// @Param entity path string true "properties or demands"
// @Success 201 {object} map[string]interface{}
// @Failure 412 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Router /{entity} [post]
func (h *Handler) Submit(entityType models.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := actor(c)
		if err != nil {
			return err
		}

		if entityType == models.EntityDemand {
			var draft lifecycle.DemandDraft
			if err := c.BodyParser(&draft); err != nil {
				return types.Invalid("invalid request body: %v", err)
			}
			demands, err := h.Lifecycle.SubmitDemand(c.UserContext(), a, &draft)
			if err != nil {
				return err
			}
			return utils.SuccessResponse(c, fiber.Map{"demands": demands}, fiber.StatusCreated)
		}

		var draft lifecycle.PropertyDraft
		if err := c.BodyParser(&draft); err != nil {
			return types.Invalid("invalid request body: %v", err)
		}
		property, err := h.Lifecycle.Submit(c.UserContext(), a, &draft)
		if err != nil {
			return err
		}
		return utils.SuccessResponse(c, property, fiber.StatusCreated)
	}
}

// Get handles GET /api/properties/:id and GET /api/demands/:id
// @Summary Read a property or demand
// @Description Evaluates the access gate for the caller. A denial is not an error: the response carries the reason and, for published listings, a stub.
// @Tags Entities
// @Produce json
// @Param entity path string true "properties or demands"
// @Param id path string true "Entity ID"
// @Param code query string false "Access code"
// @Success 200 {object} EntityResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /{entity}/{id} [get]
func (h *Handler) Get(entityType models.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := actor(c)
		if err != nil {
			return err
		}

		decision, err := h.Gate.CheckAccess(c.UserContext(), a, entityType, c.Params("id"), c.Query("code"))
		if err != nil {
			return err
		}

		res := EntityResponse{HasAccess: decision.HasAccess, Reason: string(decision.Reason)}
		if decision.HasAccess {
			res.Entity = decision.Entity
		} else {
			res.Stub = decision.Stub
		}
		return utils.SuccessResponse(c, res, fiber.StatusOK)
	}
}

// Update handles PUT /api/properties/:id and PUT /api/demands/:id
// @Summary Edit a pending property or demand
// @Tags Entities
// @Accept json
// @Produce json
// @Param entity path string true "properties or demands"
// @Param id path string true "Entity ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /{entity}/{id} [put]
func (h *Handler) Update(entityType models.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := actor(c)
		if err != nil {
			return err
		}
		id := c.Params("id")

		if entityType == models.EntityDemand {
			var draft lifecycle.DemandDraft
			if err := c.BodyParser(&draft); err != nil {
				return types.Invalid("invalid request body: %v", err)
			}
			demand, err := h.Lifecycle.UpdateDemand(c.UserContext(), a, id, &draft)
			if err != nil {
				return err
			}
			return utils.SuccessResponse(c, demand, fiber.StatusOK)
		}

		var draft lifecycle.PropertyDraft
		if err := c.BodyParser(&draft); err != nil {
			return types.Invalid("invalid request body: %v", err)
		}
		property, err := h.Lifecycle.UpdateProperty(c.UserContext(), a, id, &draft)
		if err != nil {
			return err
		}
		return utils.SuccessResponse(c, property, fiber.StatusOK)
	}
}

// Delete handles DELETE /api/properties/:id and DELETE /api/demands/:id
// @Summary Delete a property or demand
// @Description Admin only. Removes the listing with its codes, signatures and matches.
// @Tags Entities
// @Produce json
// @Param entity path string true "properties or demands"
// @Param id path string true "Entity ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /{entity}/{id} [delete]
func (h *Handler) Delete(entityType models.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := actor(c)
		if err != nil {
			return err
		}
		if err := h.Lifecycle.Delete(c.UserContext(), a, entityType, c.Params("id")); err != nil {
			return err
		}
		return utils.MutationSuccessResponse(c, 1)
	}
}

// Decide handles POST /api/properties/:id/decision and POST /api/demands/:id/decision
// @Summary Approve or reject a pending listing
// @Description Admin only. Approval requires a commission rate and terms.
// @Tags Entities
// @Accept json
// @Produce json
// @Param entity path string true "properties or demands"
// @Param id path string true "Entity ID"
// @Param verdict body lifecycle.Verdict true "Decision"
// @Success 200 {object} StatusResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Router /{entity}/{id}/decision [post]
func (h *Handler) Decide(entityType models.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := actor(c)
		if err != nil {
			return err
		}
		var verdict lifecycle.Verdict
		if err := c.BodyParser(&verdict); err != nil {
			return types.Invalid("invalid request body: %v", err)
		}

		id := c.Params("id")
		status, err := h.Lifecycle.Decide(c.UserContext(), a, entityType, id, &verdict)
		if err != nil {
			return err
		}
		return utils.SuccessResponse(c, StatusResponse{ID: id, Status: status}, fiber.StatusOK)
	}
}

// Toggle handles POST /api/properties/:id/toggle and POST /api/demands/:id/toggle
// @Summary Archive or reactivate a listing
// @Tags Entities
// @Produce json
// @Param entity path string true "properties or demands"
// @Param id path string true "Entity ID"
// @Success 200 {object} StatusResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /{entity}/{id}/toggle [post]
func (h *Handler) Toggle(entityType models.EntityType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := actor(c)
		if err != nil {
			return err
		}
		id := c.Params("id")
		status, err := h.Lifecycle.ToggleActive(c.UserContext(), a, entityType, id)
		if err != nil {
			return err
		}
		return utils.SuccessResponse(c, StatusResponse{ID: id, Status: status}, fiber.StatusOK)
	}
}

// Reserve handles POST /api/properties/:id/reserve
// @Summary Reserve or release a property
// @Tags Entities
// @Accept json
// @Produce json
// @Param id path string true "Property ID"
// @Param reservation body ReserveRequest true "Reservation"
// @Success 200 {object} models.Property
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /properties/{id}/reserve [post]
func (h *Handler) Reserve(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req ReserveRequest
	if err := c.BodyParser(&req); err != nil {
		return types.Invalid("invalid request body: %v", err)
	}

	var property *models.Property
	if req.Reserved {
		property, err = h.Lifecycle.Reserve(c.UserContext(), a, c.Params("id"), req.Until)
	} else {
		property, err = h.Lifecycle.ReleaseReservation(c.UserContext(), a, c.Params("id"))
	}
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, property, fiber.StatusOK)
}
