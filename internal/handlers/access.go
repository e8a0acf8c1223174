// access.go
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
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/localnerve/propmarket/internal/utils"
)

// IssueCodeRequest asks for an access code. UserID defaults to the caller;
// only admins and the entity owner may issue codes for someone else.
// ExpiresInDays defaults to access.DefaultCodeDays; zero issues a code
// without expiry.
type IssueCodeRequest struct {
	EntityRef
	UserID        string `json:"user_id" validate:"omitempty,uuid"`
	ExpiresInDays *int   `json:"expires_in_days" validate:"omitempty,gte=0"`
	SendEmail     bool   `json:"send_email"`
}

// IssueCodeResponse describes an issued code. Code is empty when the code
// was requested by its own holder; it is delivered by e-mail only.
type IssueCodeResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Emailed   bool   `json:"emailed"`
}

// CodeRequest carries a code for an entity
type CodeRequest struct {
	EntityRef
	Code string `json:"code" validate:"required"`
}

// LOIRequest names the property and the caller's demand
type LOIRequest struct {
	PropertyID string `json:"property_id" validate:"required"`
	DemandID   string `json:"demand_id" validate:"required"`
	Code       string `json:"code"`
}

// IssueCode handles POST /api/access-codes
// @Summary Issue an access code
// @Description Issues a viewing code. A caller requesting a code for themselves receives it by e-mail only.
// @Tags Access
// @Accept json
// @Produce json
// @Param request body IssueCodeRequest true "Code request"
// @Success 201 {object} IssueCodeResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /access-codes [post]
func (h *Handler) IssueCode(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req IssueCodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	self := req.UserID == "" || req.UserID == a.ID
	if self {
		req.UserID = a.ID
		req.SendEmail = true
	} else if !a.IsAdmin() {
		entity, err := h.Store.FindEntity(c.UserContext(), req.EntityType, req.EntityID)
		if err != nil {
			return err
		}
		if entity.OwnerID() != a.ID {
			return forbidden("only an admin or the owner may issue codes for other users")
		}
	}

	days := access.DefaultCodeDays
	if req.ExpiresInDays != nil {
		days = *req.ExpiresInDays
	}

	ac, err := h.Gate.IssueCode(c.UserContext(), access.IssueRequest{
		UserID:        req.UserID,
		IssuedBy:      a.ID,
		EntityType:    req.EntityType,
		EntityID:      req.EntityID,
		ExpiresInDays: days,
		SendEmail:     req.SendEmail,
	})
	if err != nil {
		return err
	}

	res := IssueCodeResponse{ID: ac.ID, Emailed: req.SendEmail}
	if !self {
		res.Code = ac.Code
	}
	if ac.ExpiresAt != nil {
		res.ExpiresAt = ac.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return utils.SuccessResponse(c, res, fiber.StatusCreated)
}

// VerifyCode handles POST /api/access-codes/verify
// @Summary Verify an access code
// @Tags Access
// @Accept json
// @Produce json
// @Param request body CodeRequest true "Code"
// @Success 200 {object} EntityResponse
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /access-codes/verify [post]
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req CodeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	decision, err := h.Gate.CheckAccess(c.UserContext(), a, req.EntityType, req.EntityID, req.Code)
	if err != nil {
		return err
	}
	if decision.Reason == access.ReasonInvalidCode {
		return types.ErrInvalidOrExpiredCode
	}
	res := EntityResponse{HasAccess: decision.HasAccess, Reason: string(decision.Reason), Stub: decision.Stub}
	if decision.HasAccess {
		res.Entity = decision.Entity
		res.Stub = nil
	}
	return utils.SuccessResponse(c, res, fiber.StatusOK)
}

// RequestLOI handles POST /api/loi/request
// @Summary Request a letter of intent
// @Description Mails a signing code for the property to the owner of the demand.
// @Tags Access
// @Accept json
// @Produce json
// @Param request body LOIRequest true "Property and demand"
// @Success 201 {object} models.LOISignature
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /loi/request [post]
func (h *Handler) RequestLOI(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req LOIRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	loi, err := h.Gate.RequestLOI(c.UserContext(), a, req.PropertyID, req.DemandID, client(c))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, loi, fiber.StatusCreated)
}

// SignLOI handles POST /api/loi/sign
// @Summary Sign a letter of intent
// @Tags Access
// @Accept json
// @Produce json
// @Param request body LOIRequest true "Property, demand and code"
// @Success 200 {object} models.LOISignature
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /loi/sign [post]
func (h *Handler) SignLOI(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req LOIRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Code == "" {
		return types.Invalid("code is required")
	}

	loi, err := h.Gate.SignLOI(c.UserContext(), a, req.PropertyID, req.DemandID, req.Code, client(c))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, loi, fiber.StatusOK)
}

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrForbidden, fmt.Sprintf(format, args...))
}
