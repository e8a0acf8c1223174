// common.go
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
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/middleware"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
)

// EntityRef names a property or demand in a request body
type EntityRef struct {
	EntityType models.EntityType `json:"entity_type" validate:"required,oneof=property demand"`
	EntityID   string            `json:"entity_id" validate:"required"`
}

// actor returns the authenticated caller. Routes are mounted behind the
// auth middleware, so a missing actor is a wiring error.
func actor(c *fiber.Ctx) (types.Actor, error) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		return types.Actor{}, &types.CustomError{
			Code:    fiber.StatusUnauthorized,
			Message: "Not authenticated",
			Type:    "authorization",
		}
	}
	return a, nil
}

func client(c *fiber.Ctx) access.Client {
	return access.Client{IPAddress: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
}

// parseBody decodes the JSON body into out and validates its tags
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return types.Invalid("invalid request body: %v", err)
	}
	return types.Validate(out)
}

// queryBool reads a boolean query flag. "1", "true" and "yes" are true.
func queryBool(c *fiber.Ctx, key string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
