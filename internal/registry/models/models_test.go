package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateLabel(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateActive, "Activa"},
		{StateInactive, "Inactiva"},
		{StateExpired, "Expirada"},
		{"", "Desconocido"},
		{"suspended", "Desconocido"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.Label(), "state %q", tt.state)
	}
}

func TestStateClass(t *testing.T) {
	t.Run("missing state styles as inactive", func(t *testing.T) {
		var s State
		assert.Equal(t, "state-inactive", s.Class())
		assert.Equal(t, "Desconocido", s.Label())
	})

	t.Run("known and unknown states are used verbatim", func(t *testing.T) {
		assert.Equal(t, "state-expired", StateExpired.Class())
		assert.Equal(t, "state-suspended", State("suspended").Class())
	})
}

func TestParseSearchKind(t *testing.T) {
	assert.Equal(t, KindUser, ParseSearchKind("user"))
	assert.Equal(t, KindCard, ParseSearchKind("card"))
	assert.Equal(t, KindCard, ParseSearchKind(""))
	assert.Equal(t, KindCard, ParseSearchKind("USER"))
}

func TestRecordNullFieldsAreAbsent(t *testing.T) {
	body := `{"id_user":"0801199012345","full_name":null,"card_number":"ABC123","state":null,
		"car_plate":null,"brand":null,"authorization_document":null,"created":"2025-01-15T16:30:00Z","updated":null,
		"slug":"ignored"}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(body), &rec))

	assert.Equal(t, "0801199012345", rec.IDUser)
	assert.Empty(t, rec.FullName)
	assert.Empty(t, rec.State)
	assert.Empty(t, rec.AuthorizationDocument)
	assert.Equal(t, "2025-01-15T16:30:00Z", rec.Created)
}

func TestUpdatePayloadAlwaysHasFourFields(t *testing.T) {
	raw, err := json.Marshal(UpdatePayload{State: StateExpired})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Len(t, fields, 4)
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "car_plate")
	assert.Contains(t, fields, "brand")
	assert.Equal(t, "expired", fields["state"])
}
