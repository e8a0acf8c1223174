// orchestrator.go
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

// Package matching scores a newly active property or demand against the
// opposite collection and notifies the owners of good matches.
package matching

import (
	"context"
	"time"

	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/mailer"
	"github.com/localnerve/propmarket/internal/metrics"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/notify"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/scoring"
	"github.com/sirupsen/logrus"
)

// MatchCodeDays is the expiry of the access code sent with a match
const MatchCodeDays = 7

// CodeIssuer issues access codes
type CodeIssuer interface {
	IssueCode(ctx context.Context, req access.IssueRequest) (*models.AccessCode, error)
}

// Dispatcher delivers a notice and reports the outcome
type Dispatcher interface {
	Dispatch(ctx context.Context, notice notify.Notice) (*mailer.SendResult, error)
}

// Result lists the stored matches and how many recipients were notified
type Result struct {
	Matches  []models.Match `json:"matches"`
	Notified int            `json:"notified"`
}

// Orchestrator runs the match and notify pass
type Orchestrator struct {
	store      *repository.Store
	issuer     CodeIssuer
	dispatcher Dispatcher
	log        *logrus.Entry
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(store *repository.Store, issuer CodeIssuer, dispatcher Dispatcher, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{store: store, issuer: issuer, dispatcher: dispatcher, log: log}
}

// candidate is one scored counterpart of the triggering entity
type candidate struct {
	propertyID  string
	demandID    string
	recipientID string
	score       int
}

// ComputeMatchesFor matches an active entity against the opposite side.
// Entities that are not active yield an empty result. Every pair above the
// recipient's threshold is stored, while each recipient gets one code and one
// notice carrying their best score. A failure for one recipient is logged and
// the pass continues with the next.
func (o *Orchestrator) ComputeMatchesFor(ctx context.Context, entityType models.EntityType, entityID string) (*Result, error) {
	start := time.Now()
	result := &Result{Matches: []models.Match{}}

	entity, err := o.store.FindEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if entity.CurrentStatus() != models.StatusActive {
		return result, nil
	}

	candidates, err := o.candidates(ctx, entity)
	if err != nil {
		return nil, err
	}

	recipientIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		recipientIDs = append(recipientIDs, c.recipientID)
	}
	recipients, err := o.store.UsersByID(ctx, recipientIDs)
	if err != nil {
		return nil, err
	}

	// best holds the highest scoring candidate of each recipient, in the
	// order recipients first appear.
	best := make(map[string]candidate)
	order := make([]string, 0, len(candidates))

	for _, c := range candidates {
		recipient, ok := recipients[c.recipientID]
		if !ok || c.score < recipient.Threshold() {
			continue
		}

		match, err := o.store.UpsertMatch(ctx, c.demandID, c.propertyID, c.score)
		if err != nil {
			o.log.WithError(err).WithFields(logrus.Fields{
				"property_id":  c.propertyID,
				"demand_id":    c.demandID,
				"recipient_id": c.recipientID,
			}).Error("Failed to store match")
			continue
		}
		metrics.MatchesUpserted.Inc()
		result.Matches = append(result.Matches, *match)

		prev, seen := best[c.recipientID]
		if !seen {
			order = append(order, c.recipientID)
		}
		if !seen || c.score > prev.score {
			best[c.recipientID] = c
		}
	}

	stub := access.StubOf(entity)
	for _, recipientID := range order {
		c := best[recipientID]
		log := o.log.WithFields(logrus.Fields{
			"entity_type":  entityType,
			"entity_id":    entityID,
			"recipient_id": recipientID,
			"score":        c.score,
		})

		code, err := o.issuer.IssueCode(ctx, access.IssueRequest{
			UserID:        recipientID,
			EntityType:    entityType,
			EntityID:      entityID,
			ExpiresInDays: MatchCodeDays,
		})
		if err != nil {
			log.WithError(err).Error("Failed to issue match access code")
			continue
		}

		vars := notify.Vars{
			Title: stub.Title,
			City:  stub.City,
			Code:  code.Code,
			Score: c.score,
		}
		if code.ExpiresAt != nil {
			vars.ExpiresAt = code.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")
		}
		if _, err := o.dispatcher.Dispatch(ctx, notify.Notice{
			UserID:     recipientID,
			Template:   notify.MatchFound,
			EntityType: entityType,
			EntityID:   entityID,
			Vars:       vars,
		}); err != nil {
			log.WithError(err).Warn("Failed to notify match recipient")
			continue
		}
		result.Notified++
	}

	o.log.WithFields(logrus.Fields{
		"entity_type": entityType,
		"entity_id":   entityID,
		"candidates":  len(candidates),
		"matches":     len(result.Matches),
		"notified":    result.Notified,
		"duration":    time.Since(start).String(),
	}).Info("Match pass complete")
	return result, nil
}

func (o *Orchestrator) candidates(ctx context.Context, entity models.Entity) ([]candidate, error) {
	var out []candidate

	switch e := entity.(type) {
	case *models.Property:
		demands, err := o.store.ActiveDemandCandidates(ctx, e.TransactionType, e.AgentID)
		if err != nil {
			return nil, err
		}
		for i := range demands {
			if score, ok := scoring.Score(e, &demands[i]); ok {
				out = append(out, candidate{
					propertyID:  e.ID,
					demandID:    demands[i].ID,
					recipientID: demands[i].ClientID,
					score:       score,
				})
			}
		}
	case *models.Demand:
		properties, err := o.store.ActivePropertyCandidates(ctx, e.TransactionType, e.ClientID)
		if err != nil {
			return nil, err
		}
		for i := range properties {
			if score, ok := scoring.Score(&properties[i], e); ok {
				out = append(out, candidate{
					propertyID:  properties[i].ID,
					demandID:    e.ID,
					recipientID: properties[i].AgentID,
					score:       score,
				})
			}
		}
	}
	return out, nil
}
