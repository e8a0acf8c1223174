// contracts.go
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
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/propmarket/internal/utils"
)

// DeclarationRequest carries a declaration verification code
type DeclarationRequest struct {
	Code string `json:"code" validate:"required"`
}

// DeclarationStatusResponse reports whether the caller may publish listings
type DeclarationStatusResponse struct {
	Verified bool `json:"verified"`
}

// RequestContract handles POST /api/contracts/request
// @Summary Request a brokerage contract
// @Description Mails a signing code for an approved listing to its owner.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param request body EntityRef true "Listing"
// @Success 201 {object} models.BrokerageContract
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /contracts/request [post]
func (h *Handler) RequestContract(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req EntityRef
	if err := parseBody(c, &req); err != nil {
		return err
	}

	contract, err := h.Entitlements.RequestContract(c.UserContext(), a, req.EntityType, req.EntityID, client(c))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, contract, fiber.StatusCreated)
}

// SignContract handles POST /api/contracts/sign
// @Summary Sign a brokerage contract
// @Description Signing publishes the listing and runs matching for it.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param request body CodeRequest true "Listing and code"
// @Success 200 {object} models.BrokerageContract
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /contracts/sign [post]
func (h *Handler) SignContract(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req CodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	contract, err := h.Entitlements.SignContract(c.UserContext(), a, req.EntityType, req.EntityID, req.Code, client(c))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, contract, fiber.StatusOK)
}

// RequestDeclaration handles POST /api/declarations/request
// @Summary Request an agent declaration
// @Tags Contracts
// @Produce json
// @Success 201 {object} models.AgentDeclaration
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /declarations/request [post]
func (h *Handler) RequestDeclaration(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	declaration, err := h.Entitlements.RequestDeclaration(c.UserContext(), a, client(c))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, declaration, fiber.StatusCreated)
}

// VerifyDeclaration handles POST /api/declarations/verify
// @Summary Verify an agent declaration
// @Tags Contracts
// @Accept json
// @Produce json
// @Param request body DeclarationRequest true "Code"
// @Success 200 {object} models.AgentDeclaration
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /declarations/verify [post]
func (h *Handler) VerifyDeclaration(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req DeclarationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	declaration, err := h.Entitlements.VerifyDeclaration(c.UserContext(), a, req.Code, client(c))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, declaration, fiber.StatusOK)
}

// DeclarationStatus handles GET /api/declarations/status
// @Summary Report the caller's declaration status
// @Tags Contracts
// @Produce json
// @Success 200 {object} DeclarationStatusResponse
// @Router /declarations/status [get]
func (h *Handler) DeclarationStatus(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	verified, err := h.Entitlements.HasVerifiedDeclaration(c.UserContext(), a.ID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, DeclarationStatusResponse{Verified: verified}, fiber.StatusOK)
}
