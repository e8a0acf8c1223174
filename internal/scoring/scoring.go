// Package scoring computes the compatibility of a property with a demand.
package scoring

import (
	"strings"

	"github.com/localnerve/propmarket/internal/models"
)

const (
	Baseline   = 70
	PriceBonus = 15
	AreaBonus  = 15
	Max        = 100
)

// Score returns the compatibility of p with d. ok is false when there is no
// baseline match (different transaction type, or a property type the demand
// does not ask for); such a pair has no score.
func Score(p *models.Property, d *models.Demand) (score int, ok bool) {
	if p == nil || d == nil {
		return 0, false
	}
	if !strings.EqualFold(p.TransactionType, d.TransactionType) {
		return 0, false
	}
	if !d.PropertyTypes.Contains(p.PropertyType) {
		return 0, false
	}

	score = Baseline
	if d.PriceMin != nil && d.PriceMax != nil &&
		d.PriceMin.LessThanOrEqual(p.Price) && p.Price.LessThanOrEqual(*d.PriceMax) {
		score += PriceBonus
	}
	if d.AreaMin != nil && d.AreaMax != nil && p.Area != nil &&
		*d.AreaMin <= *p.Area && *p.Area <= *d.AreaMax {
		score += AreaBonus
	}

	if score > Max {
		score = Max
	}
	return score, true
}
