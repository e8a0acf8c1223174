// auth.go
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

package middleware

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/sirupsen/logrus"
)

// SessionCookie is the Authorizer session cookie name
const SessionCookie = "cookie_session"

const actorKey = "actor"

// SessionValidator resolves a session cookie to the calling user
type SessionValidator interface {
	ValidateSession(cookie, origin string) (types.Actor, error)
}

// UserSyncer mirrors an authenticated caller into the users table
type UserSyncer interface {
	SyncUser(ctx context.Context, actor types.Actor) (*models.User, error)
}

// Auth validates the session cookie and stores the caller in the request
// context. Deactivated users are refused.
func Auth(validator SessionValidator, users UserSyncer, log *logrus.Entry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get session cookie
		session := c.Cookies(SessionCookie)
		if session == "" {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: fmt.Sprintf("Authorizer cookie %q not found", SessionCookie),
				Type:    "authorization",
			}
		}

		// Validate session
		actor, err := validator.ValidateSession(session, c.Protocol()+"://"+c.Hostname())
		if err != nil {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: fmt.Sprintf("Invalid session: %v", err),
				Type:    "authorization",
			}
		}

		user, err := users.SyncUser(c.UserContext(), actor)
		if err != nil {
			log.WithError(err).WithField("user_id", actor.ID).Error("Failed to sync user")
			return err
		}
		if !user.IsActive {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: "Account is deactivated",
				Type:    "authorization",
			}
		}

		// Set user data in context
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// AuthAdmin allows only administrators through. It must run after Auth.
func AuthAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := CurrentActor(c)
		if !ok || !actor.IsAdmin() {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: "Administrator role required",
				Type:    "authorization.admin",
			}
		}
		return c.Next()
	}
}

// CurrentActor returns the authenticated caller
func CurrentActor(c *fiber.Ctx) (types.Actor, bool) {
	actor, ok := c.Locals(actorKey).(types.Actor)
	return actor, ok
}

// SetActor stores actor as the authenticated caller
func SetActor(c *fiber.Ctx, actor types.Actor) {
	c.Locals(actorKey, actor)
}
