// transitions.go
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

// Package lifecycle owns the status of properties and demands.
package lifecycle

import (
	"fmt"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
)

// Event is something that may move an entity to another status
type Event string

const (
	EventApprove        Event = "approve"
	EventApproveDirect  Event = "approve_direct"
	EventReject         Event = "reject"
	EventContractSigned Event = "contract_signed"
	EventArchive        Event = "archive"
	EventReactivate     Event = "reactivate"
)

// transitions lists every permitted (status, event) pair. Nothing leads
// back to pending, and rejected has no way out.
var transitions = map[models.Status]map[Event]models.Status{
	models.StatusPending: {
		EventApprove:       models.StatusApprovedPendingContract,
		EventApproveDirect: models.StatusActive,
		EventReject:        models.StatusRejected,
	},
	models.StatusApprovedPendingContract: {
		EventContractSigned: models.StatusActive,
	},
	models.StatusActive: {
		EventArchive: models.StatusArchived,
	},
	models.StatusArchived: {
		EventReactivate: models.StatusActive,
	},
}

// Next returns the status reached from `from` on event, or
// ErrInvalidTransition when the table has no such edge.
func Next(from models.Status, event Event) (models.Status, error) {
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: cannot %s from %s", types.ErrInvalidTransition, event, from)
}
