// decision.go
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
	"github.com/localnerve/propmarket/internal/models"
	"github.com/shopspring/decimal"
)

// Reason explains an access decision
type Reason string

const (
	ReasonAdmin        Reason = "admin"
	ReasonOwner        Reason = "owner"
	ReasonSignedLOI    Reason = "signed_loi"
	ReasonVerifiedCode Reason = "verified_code"

	ReasonNotPublished  Reason = "not_published"
	ReasonInvalidCode   Reason = "invalid_code"
	ReasonCodeRequired  Reason = "code_required"
	ReasonLOIPending    Reason = "loi_pending"
	ReasonNoEntitlement Reason = "no_entitlement"
)

// Decision is the outcome of CheckAccess. Entity is always set; callers
// render it in full only when HasAccess is true and render Stub otherwise.
type Decision struct {
	HasAccess bool          `json:"has_access"`
	Reason    Reason        `json:"reason"`
	Stub      *Stub         `json:"stub,omitempty"`
	Entity    models.Entity `json:"-"`
}

// PriceBand is a price range rounded to the leading digit
type PriceBand struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Stub is the non-sensitive projection of an entity
type Stub struct {
	EntityType      models.EntityType `json:"entity_type"`
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	City            string            `json:"city,omitempty"`
	Cities          []string          `json:"cities,omitempty"`
	TransactionType string            `json:"transaction_type"`
	PropertyType    string            `json:"property_type,omitempty"`
	PropertyTypes   []string          `json:"property_types,omitempty"`
	PriceBand       *PriceBand        `json:"price_band,omitempty"`
	PhotoCount      int               `json:"photo_count"`
}

// Band rounds price down and up to its leading-digit decade, so
// 3,250,000 becomes 3,000,000..4,000,000. Non-positive prices have no band.
func Band(price decimal.Decimal) *PriceBand {
	if !price.IsPositive() {
		return nil
	}
	whole := price.Truncate(0)
	if whole.IsZero() {
		return &PriceBand{Min: decimal.Zero, Max: decimal.NewFromInt(1)}
	}
	step := decimal.New(1, int32(len(whole.String())-1))
	low := price.Div(step).Floor().Mul(step)
	return &PriceBand{Min: low, Max: low.Add(step)}
}

// StubOf projects an entity to its stub
func StubOf(entity models.Entity) *Stub {
	switch e := entity.(type) {
	case *models.Property:
		return &Stub{
			EntityType:      models.EntityProperty,
			ID:              e.ID,
			Title:           e.Title,
			City:            e.City,
			TransactionType: e.TransactionType,
			PropertyType:    e.PropertyType,
			PriceBand:       Band(e.Price),
			PhotoCount:      e.PhotoCount,
		}
	case *models.Demand:
		stub := &Stub{
			EntityType:      models.EntityDemand,
			ID:              e.ID,
			Title:           e.Title,
			Cities:          []string(e.Cities),
			TransactionType: e.TransactionType,
			PropertyTypes:   []string(e.PropertyTypes),
		}
		if e.PriceMax != nil {
			stub.PriceBand = Band(*e.PriceMax)
		}
		return stub
	}
	return nil
}
