// loi.go
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

package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/localnerve/propmarket/internal/audit"
	"github.com/localnerve/propmarket/internal/codes"
	"github.com/localnerve/propmarket/internal/metrics"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/notify"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/types"
)

// Client holds request metadata recorded with signatures
type Client struct {
	IPAddress string
	UserAgent string
}

// RequestLOI starts the letter of intent protocol for a (property, demand)
// pair. The property must be published and the demand must belong to the
// actor. A signed letter still in force is returned unchanged; otherwise
// the row is given a fresh code and expiry and the code is mailed.
func (g *Gate) RequestLOI(ctx context.Context, actor types.Actor, propertyID, demandID string, client Client) (*models.LOISignature, error) {
	property, err := g.store.FindProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property.Status != models.StatusActive {
		return nil, fmt.Errorf("%w: property %s is not published", types.ErrNotFound, propertyID)
	}
	demand, err := g.store.FindDemand(ctx, demandID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && demand.ClientID != actor.ID {
		return nil, forbidden("demand %s belongs to another user", demandID)
	}

	now := g.now()
	loi, err := g.store.FindLOI(ctx, actor.ID, propertyID, demandID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	if loi != nil && loi.IsSigned(now) {
		return loi, nil
	}

	if loi == nil {
		loi = &models.LOISignature{UserID: actor.ID, PropertyID: propertyID, DemandID: demandID}
	}
	loi.ExpiresAt = now.Add(LOICodeTTL)
	loi.SignedAt = nil
	loi.IsActive = true
	loi.IPAddress = client.IPAddress
	loi.UserAgent = client.UserAgent

	_, err = codes.Issue(g.gen, func(code string) error {
		loi.Code = code
		if loi.ID != "" {
			return g.store.Save(ctx, loi)
		}
		err := g.store.Create(ctx, loi)
		if repository.IsDuplicateKey(err) {
			// A concurrent request may have created the row for this triple;
			// continue on that row.
			loi.ID = ""
			if existing, findErr := g.store.FindLOI(ctx, actor.ID, propertyID, demandID); findErr == nil {
				loi.ID = existing.ID
				loi.CreatedAt = existing.CreatedAt
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.CodesIssued.WithLabelValues("loi").Inc()

	g.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     models.ActionLOIRequest,
		EntityType: models.EntityProperty,
		EntityID:   propertyID,
		Details:    map[string]interface{}{"demand_id": demandID},
		IPAddress:  client.IPAddress,
	})

	g.notifier.Notify(ctx, notify.Notice{
		UserID:     actor.ID,
		Template:   notify.LOICode,
		EntityType: models.EntityProperty,
		EntityID:   propertyID,
		EmailOnly:  true,
		Vars: notify.Vars{
			Title:     property.Title,
			City:      property.City,
			Code:      loi.Code,
			ExpiresAt: formatExpiry(&loi.ExpiresAt),
		},
	})
	return loi, nil
}

// SignLOI completes the protocol. The code must match the pending row and be
// unexpired. The signed letter then grants access for SignedLOITTL.
func (g *Gate) SignLOI(ctx context.Context, actor types.Actor, propertyID, demandID, code string, client Client) (*models.LOISignature, error) {
	loi, err := g.store.FindLOI(ctx, actor.ID, propertyID, demandID)
	if errors.Is(err, types.ErrNotFound) {
		metrics.CodeVerifications.WithLabelValues("loi", "failure").Inc()
		return nil, types.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, err
	}

	now := g.now()
	code = codes.Normalize(code)
	if loi.Code != code || !loi.IsActive {
		metrics.CodeVerifications.WithLabelValues("loi", "failure").Inc()
		return nil, types.ErrInvalidOrExpiredCode
	}
	if loi.IsSigned(now) {
		return loi, nil
	}
	if loi.SignedAt != nil || !now.Before(loi.ExpiresAt) {
		metrics.CodeVerifications.WithLabelValues("loi", "failure").Inc()
		return nil, types.ErrInvalidOrExpiredCode
	}

	expires := now.Add(SignedLOITTL)
	result := g.store.DB(ctx).Model(&models.LOISignature{}).
		Where("id = ? AND code = ? AND signed_at IS NULL", loi.ID, code).
		Updates(map[string]interface{}{
			"signed_at":  now,
			"expires_at": expires,
			"ip_address": client.IPAddress,
			"user_agent": client.UserAgent,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		metrics.CodeVerifications.WithLabelValues("loi", "failure").Inc()
		return nil, types.ErrInvalidOrExpiredCode
	}
	metrics.CodeVerifications.WithLabelValues("loi", "success").Inc()

	loi.SignedAt = &now
	loi.ExpiresAt = expires
	loi.IPAddress = client.IPAddress
	loi.UserAgent = client.UserAgent

	g.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     models.ActionLOISign,
		EntityType: models.EntityProperty,
		EntityID:   propertyID,
		Details:    map[string]interface{}{"demand_id": demandID, "loi_id": loi.ID},
		IPAddress:  client.IPAddress,
	})
	return loi, nil
}
