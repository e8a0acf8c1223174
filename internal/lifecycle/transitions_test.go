package lifecycle

import (
	"testing"

	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allStatuses = []models.Status{
		models.StatusPending,
		models.StatusApprovedPendingContract,
		models.StatusActive,
		models.StatusRejected,
		models.StatusArchived,
	}
	allEvents = []Event{
		EventApprove,
		EventApproveDirect,
		EventReject,
		EventContractSigned,
		EventArchive,
		EventReactivate,
	}
)

func TestNext(t *testing.T) {
	tests := []struct {
		from  models.Status
		event Event
		want  models.Status
	}{
		{models.StatusPending, EventApprove, models.StatusApprovedPendingContract},
		{models.StatusPending, EventApproveDirect, models.StatusActive},
		{models.StatusPending, EventReject, models.StatusRejected},
		{models.StatusApprovedPendingContract, EventContractSigned, models.StatusActive},
		{models.StatusActive, EventArchive, models.StatusArchived},
		{models.StatusArchived, EventReactivate, models.StatusActive},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextRejectsEverythingElse(t *testing.T) {
	allowed := 0
	for _, from := range allStatuses {
		for _, event := range allEvents {
			to, err := Next(from, event)
			if err != nil {
				assert.ErrorIs(t, err, types.ErrInvalidTransition)
				assert.Empty(t, to)
				continue
			}
			allowed++
		}
	}
	assert.Equal(t, 6, allowed)
}

func TestNothingLeadsBackToPending(t *testing.T) {
	for _, from := range allStatuses {
		for _, event := range allEvents {
			to, err := Next(from, event)
			if err == nil {
				assert.NotEqual(t, models.StatusPending, to, "%s on %s", from, event)
			}
		}
	}
	for _, event := range allEvents {
		_, err := Next(models.StatusRejected, event)
		assert.ErrorIs(t, err, types.ErrInvalidTransition)
	}
}

func TestApprovedPendingContractOnlyActivatesOnContract(t *testing.T) {
	for _, event := range allEvents {
		to, err := Next(models.StatusApprovedPendingContract, event)
		if event == EventContractSigned {
			require.NoError(t, err)
			assert.Equal(t, models.StatusActive, to)
			continue
		}
		assert.ErrorIs(t, err, types.ErrInvalidTransition, "event %s", event)
	}
}
