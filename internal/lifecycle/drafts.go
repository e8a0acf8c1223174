// drafts.go
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

package lifecycle

import (
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/shopspring/decimal"
)

// PropertyDraft is a listing as submitted or edited
type PropertyDraft struct {
	// AgentID lets an administrator submit on behalf of an agent
	AgentID         string          `json:"agent_id" validate:"omitempty,uuid"`
	Title           string          `json:"title" validate:"required,max=255"`
	Description     string          `json:"description"`
	TransactionType string          `json:"transaction_type" validate:"required,oneof=sale rent"`
	PropertyType    string          `json:"property_type" validate:"required,max=64"`
	PropertySubtype string          `json:"property_subtype" validate:"max=64"`
	Price           decimal.Decimal `json:"price"`
	Area            *float64        `json:"area" validate:"omitempty,gt=0"`
	Rooms           *types.FlexInt  `json:"rooms" validate:"omitempty,gte=0"`
	Floor           *types.FlexInt  `json:"floor"`
	City            string          `json:"city" validate:"required,max=128"`
	District        string          `json:"district" validate:"max=128"`
	Address         string          `json:"address" validate:"max=255"`
	Latitude        *float64        `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude       *float64        `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	ContactPhone    string          `json:"contact_phone" validate:"max=64"`
	ContactEmail    string          `json:"contact_email" validate:"omitempty,email"`
	PhotoCount      int             `json:"photo_count" validate:"gte=0"`
}

func (d *PropertyDraft) validate() error {
	if err := types.Validate(d); err != nil {
		return err
	}
	if !d.Price.IsPositive() {
		return types.Invalid("price: must be greater than 0")
	}
	return nil
}

func (d *PropertyDraft) fields() map[string]interface{} {
	return map[string]interface{}{
		"title":            d.Title,
		"description":      d.Description,
		"transaction_type": d.TransactionType,
		"property_type":    d.PropertyType,
		"property_subtype": d.PropertySubtype,
		"price":            d.Price,
		"area":             d.Area,
		"rooms":            types.IntPtr(d.Rooms),
		"floor":            types.IntPtr(d.Floor),
		"city":             d.City,
		"district":         d.District,
		"address":          d.Address,
		"latitude":         d.Latitude,
		"longitude":        d.Longitude,
		"contact_phone":    d.ContactPhone,
		"contact_email":    d.ContactEmail,
		"photo_count":      d.PhotoCount,
	}
}

func (d *PropertyDraft) property(ownerID string) *models.Property {
	return &models.Property{
		AgentID:         ownerID,
		Title:           d.Title,
		Description:     d.Description,
		TransactionType: d.TransactionType,
		PropertyType:    d.PropertyType,
		PropertySubtype: d.PropertySubtype,
		Price:           d.Price,
		Area:            d.Area,
		Rooms:           types.IntPtr(d.Rooms),
		Floor:           types.IntPtr(d.Floor),
		City:            d.City,
		District:        d.District,
		Address:         d.Address,
		Latitude:        d.Latitude,
		Longitude:       d.Longitude,
		ContactPhone:    d.ContactPhone,
		ContactEmail:    d.ContactEmail,
		PhotoCount:      d.PhotoCount,
		Status:          models.StatusPending,
	}
}

// DemandDraft is a search request as submitted. Several transaction types
// and property types fan out into one demand per combination.
type DemandDraft struct {
	// ClientID lets an administrator submit on behalf of a client
	ClientID         string                 `json:"client_id" validate:"omitempty,uuid"`
	Title            string                 `json:"title" validate:"required,max=255"`
	Description      string                 `json:"description"`
	TransactionTypes types.FlexList[string] `json:"transaction_types" validate:"min=1,dive,oneof=sale rent"`
	PropertyTypes    types.FlexList[string] `json:"property_types" validate:"min=1,dive,required,max=64"`
	Cities           types.FlexList[string] `json:"cities" validate:"dive,max=128"`
	Districts        types.FlexList[string] `json:"districts" validate:"dive,max=128"`
	PriceMin         *decimal.Decimal       `json:"price_min"`
	PriceMax         *decimal.Decimal       `json:"price_max"`
	AreaMin          *float64               `json:"area_min" validate:"omitempty,gte=0"`
	AreaMax          *float64               `json:"area_max" validate:"omitempty,gte=0"`
	RoomsMin         *types.FlexInt         `json:"rooms_min" validate:"omitempty,gte=0"`
	RoomsMax         *types.FlexInt         `json:"rooms_max" validate:"omitempty,gte=0"`
	ContactPhone     string                 `json:"contact_phone" validate:"max=64"`
	ContactEmail     string                 `json:"contact_email" validate:"omitempty,email"`
}

func (d *DemandDraft) validate() error {
	if err := types.Validate(d); err != nil {
		return err
	}
	if d.PriceMin != nil && d.PriceMin.IsNegative() {
		return types.Invalid("price_min: must be greater than or equal to 0")
	}
	if d.PriceMin != nil && d.PriceMax != nil && d.PriceMin.GreaterThan(*d.PriceMax) {
		return types.Invalid("price_min %s exceeds price_max %s", d.PriceMin, d.PriceMax)
	}
	if d.AreaMin != nil && d.AreaMax != nil && *d.AreaMin > *d.AreaMax {
		return types.Invalid("area_min %g exceeds area_max %g", *d.AreaMin, *d.AreaMax)
	}
	if d.RoomsMin != nil && d.RoomsMax != nil && *d.RoomsMin > *d.RoomsMax {
		return types.Invalid("rooms_min %d exceeds rooms_max %d", d.RoomsMin.Int(), d.RoomsMax.Int())
	}
	return nil
}

// demands expands the draft into one pending demand per transaction type and
// property type.
func (d *DemandDraft) demands(ownerID string) []*models.Demand {
	txs := types.CleanStrings(d.TransactionTypes.Slice())
	kinds := types.CleanStrings(d.PropertyTypes.Slice())

	out := make([]*models.Demand, 0, len(txs)*len(kinds))
	for _, tx := range txs {
		for _, kind := range kinds {
			demand := d.demand(ownerID)
			demand.TransactionType = tx
			demand.PropertyTypes = models.StringList{kind}
			out = append(out, demand)
		}
	}
	return out
}

func (d *DemandDraft) demand(ownerID string) *models.Demand {
	return &models.Demand{
		ClientID:      ownerID,
		Title:         d.Title,
		Description:   d.Description,
		PropertyTypes: models.StringList(types.CleanStrings(d.PropertyTypes.Slice())),
		Cities:        models.StringList(types.CleanStrings(d.Cities.Slice())),
		Districts:     models.StringList(types.CleanStrings(d.Districts.Slice())),
		PriceMin:      d.PriceMin,
		PriceMax:      d.PriceMax,
		AreaMin:       d.AreaMin,
		AreaMax:       d.AreaMax,
		RoomsMin:      types.IntPtr(d.RoomsMin),
		RoomsMax:      types.IntPtr(d.RoomsMax),
		ContactPhone:  d.ContactPhone,
		ContactEmail:  d.ContactEmail,
		Status:        models.StatusPending,
	}
}

func (d *DemandDraft) fields() (map[string]interface{}, error) {
	txs := types.CleanStrings(d.TransactionTypes.Slice())
	if len(txs) != 1 {
		return nil, types.Invalid("transaction_types: an existing demand has exactly one transaction type")
	}
	demand := d.demand("")
	return map[string]interface{}{
		"title":            demand.Title,
		"description":      demand.Description,
		"transaction_type": txs[0],
		"property_types":   demand.PropertyTypes,
		"cities":           demand.Cities,
		"districts":        demand.Districts,
		"price_min":        demand.PriceMin,
		"price_max":        demand.PriceMax,
		"area_min":         demand.AreaMin,
		"area_max":         demand.AreaMax,
		"rooms_min":        demand.RoomsMin,
		"rooms_max":        demand.RoomsMax,
		"contact_phone":    demand.ContactPhone,
		"contact_email":    demand.ContactEmail,
	}, nil
}

// Verdict is an administrator's decision on a pending entity
type Verdict struct {
	Decision        string           `json:"decision" validate:"required,oneof=approve reject"`
	CommissionRate  *decimal.Decimal `json:"commission_rate"`
	CommissionTerms string           `json:"commission_terms"`
	Reason          string           `json:"reason"`
}

func (v *Verdict) validateApproval() error {
	if v.CommissionRate == nil {
		return types.Invalid("commission_rate: is required for approval")
	}
	if v.CommissionRate.IsNegative() || v.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return types.Invalid("commission_rate: must be between 0 and 100")
	}
	if v.CommissionTerms == "" {
		return types.Invalid("commission_terms: is required for approval")
	}
	return nil
}
