// errors.go
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
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/localnerve/propmarket/internal/utils"
	"github.com/sirupsen/logrus"
)

// StatusFor maps a domain error to its HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, types.ErrComplianceRequired):
		return fiber.StatusPreconditionFailed
	case errors.Is(err, types.ErrInvalidOrExpiredCode), errors.Is(err, types.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, types.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, types.ErrServiceUnavailable), errors.Is(err, types.ErrDuplicateCode):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a route in the common error
// envelope. Unexpected errors are logged and their text is not exposed.
func ErrorHandler(log *logrus.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.ErrorResponse(c, fe.Message, fe.Code, "http")
		}

		var ce *types.CustomError
		if errors.As(err, &ce) {
			return utils.ErrorResponse(c, ce.Message, ce.Code, ce.Type)
		}

		status := StatusFor(err)
		if status == fiber.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"url":    c.OriginalURL(),
			}).Error("Request failed")
			return utils.ErrorResponse(c, "Internal server error", status, types.ErrorType(err))
		}
		return utils.ErrorResponse(c, err.Error(), status, types.ErrorType(err))
	}
}

// NotFound answers requests no route matched
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}
