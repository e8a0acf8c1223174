// matches.go
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
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/localnerve/propmarket/internal/utils"
)

// MatchStatusRequest moves a match to a viewer-side status
type MatchStatusRequest struct {
	Status models.MatchStatus `json:"status" validate:"required,oneof=new viewed dismissed"`
}

// PreferencesRequest updates the match notification preferences
type PreferencesRequest struct {
	NotifyMatches bool `json:"notify_matches"`
	MinMatchScore int  `json:"min_match_score" validate:"gte=0,lte=100"`
}

// ComputeMatches handles POST /api/matches/compute
// @Summary Run matching for a listing
// @Description Admin only. Scores the listing against active counterparts and notifies recipients.
// @Tags Matches
// @Accept json
// @Produce json
// @Param request body EntityRef true "Listing"
// @Success 200 {object} matching.Result
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /matches/compute [post]
func (h *Handler) ComputeMatches(c *fiber.Ctx) error {
	var req EntityRef
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.Matching.ComputeMatchesFor(c.UserContext(), req.EntityType, req.EntityID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// ListMatches handles GET /api/matches
// @Summary List the caller's matches
// @Tags Matches
// @Produce json
// @Param status query string false "new, viewed or dismissed"
// @Success 200 {array} models.Match
// @Router /matches [get]
func (h *Handler) ListMatches(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	status := models.MatchStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		return types.Invalid("unknown match status %q", status)
	}

	matches, err := h.Store.MatchesForUser(c.UserContext(), a.ID, status)
	if err != nil {
		return err
	}
	if matches == nil {
		matches = []models.Match{}
	}
	return utils.SuccessResponse(c, matches, fiber.StatusOK)
}

// SetMatchStatus handles PATCH /api/matches/:id
// @Summary Mark a match viewed or dismissed
// @Tags Matches
// @Accept json
// @Produce json
// @Param id path string true "Match ID"
// @Param request body MatchStatusRequest true "Status"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /matches/{id} [patch]
func (h *Handler) SetMatchStatus(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req MatchStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	match, err := h.Store.FindMatch(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	if !a.IsAdmin() {
		owns, err := h.ownsMatch(c, a.ID, match)
		if err != nil {
			return err
		}
		if !owns {
			return forbidden("match %s belongs to another user", match.ID)
		}
	}

	if err := h.Store.SetMatchStatus(ctx, match.ID, req.Status); err != nil {
		return err
	}
	return utils.MutationSuccessResponse(c, 1)
}

func (h *Handler) ownsMatch(c *fiber.Ctx, userID string, match *models.Match) (bool, error) {
	demand, err := h.Store.FindDemand(c.UserContext(), match.DemandID)
	if err != nil {
		return false, err
	}
	if demand.OwnerID() == userID {
		return true, nil
	}
	property, err := h.Store.FindProperty(c.UserContext(), match.PropertyID)
	if err != nil {
		return false, err
	}
	return property.OwnerID() == userID, nil
}

// ListNotifications handles GET /api/notifications
// @Summary List the caller's notifications
// @Tags Matches
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	notifications, err := h.Store.Notifications(c.UserContext(), a.ID, queryBool(c, "unread"))
	if err != nil {
		return err
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return utils.SuccessResponse(c, notifications, fiber.StatusOK)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
// @Summary Mark a notification read
// @Tags Matches
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /notifications/{id}/read [post]
func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	if err := h.Store.MarkNotificationRead(c.UserContext(), a.ID, c.Params("id")); err != nil {
		return err
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Me handles GET /api/me
// @Summary Read the caller's account
// @Tags Users
// @Produce json
// @Success 200 {object} models.User
// @Router /me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	user, err := h.Store.FindUser(c.UserContext(), a.ID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, user, fiber.StatusOK)
}

// UpdatePreferences handles PUT /api/me/preferences
// @Summary Update match notification preferences
// @Tags Users
// @Accept json
// @Produce json
// @Param request body PreferencesRequest true "Preferences"
// @Success 200 {object} models.User
// @Failure 422 {object} utils.ErrorResponseStruct
// @Router /me/preferences [put]
func (h *Handler) UpdatePreferences(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req PreferencesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.Store.UpdatePreferences(c.UserContext(), a.ID, req.NotifyMatches, req.MinMatchScore)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, user, fiber.StatusOK)
}
