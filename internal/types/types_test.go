package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexList_SingleAndArray(t *testing.T) {
	var payload struct {
		Cities FlexList[string] `json:"cities"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"cities":"Warsaw"}`), &payload))
	assert.Equal(t, []string{"Warsaw"}, payload.Cities.Slice())

	require.NoError(t, json.Unmarshal([]byte(`{"cities":["Warsaw","Gdansk"]}`), &payload))
	assert.Equal(t, []string{"Warsaw", "Gdansk"}, payload.Cities.Slice())
}

func TestCleanStrings(t *testing.T) {
	got := CleanStrings([]string{" Flat", "flat", "", "House "})
	assert.Equal(t, []string{"flat", "house"}, got)
}

func TestFlexInt(t *testing.T) {
	var payload struct {
		Days  FlexInt  `json:"days"`
		Rooms *FlexInt `json:"rooms"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"days":"30","rooms":3}`), &payload))
	assert.Equal(t, 30, payload.Days.Int())
	require.NotNil(t, IntPtr(payload.Rooms))
	assert.Equal(t, 3, *IntPtr(payload.Rooms))

	assert.Error(t, json.Unmarshal([]byte(`{"days":"thirty"}`), &payload))
	assert.Nil(t, IntPtr(nil))
}

func TestErrorType(t *testing.T) {
	wrapped := fmt.Errorf("%w: property is active", ErrInvalidTransition)
	assert.Equal(t, "invalid_transition", ErrorType(wrapped))
	assert.Equal(t, "compliance_required", ErrorType(ErrComplianceRequired))
	assert.Equal(t, "unknown", ErrorType(errors.New("boom")))
}

type sample struct {
	Name  string   `json:"name" validate:"required,max=5"`
	Kind  string   `json:"kind" validate:"oneof=sale rent"`
	Items []string `json:"items" validate:"min=1"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sample{Name: "ok", Kind: "sale", Items: []string{"a"}}))

	err := Validate(sample{Name: "too long", Kind: "swap"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "name: must be at most 5 characters")
	assert.Contains(t, err.Error(), "kind: must be one of: sale rent")
	assert.Contains(t, err.Error(), "items: must have at least 1 items")
}

func TestInvalid(t *testing.T) {
	err := Invalid("price_min %d exceeds price_max %d", 5, 3)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "price_min 5 exceeds price_max 3")
}
