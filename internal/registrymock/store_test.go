package registrymock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardportal/internal/registry/models"
	dErrors "cardportal/pkg/domain-errors"
)

var fixedNow = time.Date(2024, 3, 5, 20, 7, 9, 123456000, time.UTC)

func sampleRegistration() Registration {
	return Registration{
		IDUser:       "0801199912345",
		FullName:     "Ana López",
		CardNumber:   "C-1001",
		State:        models.StateActive,
		CarPlate:     "HAB1234",
		Brand:        "Toyota",
		Document:     []byte("%PDF-1.4"),
		DocumentName: "permiso.pdf",
	}
}

func TestStoreRegisterAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewStore(WithClock(func() time.Time { return fixedNow }))

	rec, err := s.Register(ctx, sampleRegistration())
	require.NoError(t, err)
	assert.Equal(t, "0801199912345", rec.IDUser)
	assert.Equal(t, "2024-03-05T20:07:09.123456Z", rec.Created)
	assert.Equal(t, rec.Created, rec.Updated)
	require.Contains(t, rec.AuthorizationDocument, MediaPrefix)

	byUser, err := s.FindByUser(ctx, "0801199912345")
	require.NoError(t, err)
	assert.Equal(t, rec, byUser)

	byCard, err := s.FindByCard(ctx, "C-1001")
	require.NoError(t, err)
	assert.Equal(t, rec, byCard)

	doc, ok := s.Document(rec.AuthorizationDocument[len(MediaPrefix):])
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-1.4"), doc)
}

func TestStoreNotFound(t *testing.T) {
	s := NewStore()

	_, err := s.FindByUser(context.Background(), "nobody")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Equal(t, "No User matches the given query.", dErrors.Message(err))

	_, err = s.FindByCard(context.Background(), "nothing")
	assert.Equal(t, "No ParkingCard matches the given query.", dErrors.Message(err))

	_, err = s.UpdateByCard(context.Background(), "nothing", Changes{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestStoreRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, err := s.Register(ctx, sampleRegistration())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Registration)
		want   string
	}{
		{"user id", func(r *Registration) { r.CardNumber, r.CarPlate = "C-2002", "HCD5678" }, "User id 0801199912345 already registered."},
		{"card number", func(r *Registration) { r.IDUser, r.CarPlate = "0801199954321", "HCD5678" }, "Card number C-1001 already in use."},
		{"plate", func(r *Registration) { r.IDUser, r.CardNumber = "0801199954321", "C-2002" }, "Vehicle plate HAB1234 already registered."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := sampleRegistration()
			tt.mutate(&reg)
			_, err := s.Register(ctx, reg)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
			assert.Equal(t, tt.want, dErrors.Message(err))
		})
	}

	_, err = s.FindByUser(ctx, "0801199954321")
	assert.Error(t, err, "a rejected registration stores nothing")
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	s := NewStore(WithClock(func() time.Time { return now }))
	_, err := s.Register(ctx, sampleRegistration())
	require.NoError(t, err)

	other := sampleRegistration()
	other.IDUser, other.CardNumber, other.CarPlate = "0801199954321", "C-2002", "HCD5678"
	_, err = s.Register(ctx, other)
	require.NoError(t, err)

	now = fixedNow.Add(time.Hour)
	expired := models.StateExpired
	plate := "HXY0001"
	rec, err := s.UpdateByCard(ctx, "C-1001", Changes{State: &expired, CarPlate: &plate})
	require.NoError(t, err)
	assert.Equal(t, models.StateExpired, rec.State)
	assert.Equal(t, "HXY0001", rec.CarPlate)
	assert.Equal(t, "Ana López", rec.FullName)
	assert.Equal(t, "2024-03-05T21:07:09.123456Z", rec.Updated)
	assert.Equal(t, "2024-03-05T20:07:09.123456Z", rec.Created)

	t.Run("old plate is released", func(t *testing.T) {
		old := "HAB1234"
		_, err := s.UpdateByUser(ctx, "0801199954321", Changes{CarPlate: &old})
		require.NoError(t, err)
	})

	t.Run("taken plate", func(t *testing.T) {
		taken := "HXY0001"
		_, err := s.UpdateByUser(ctx, "0801199954321", Changes{CarPlate: &taken})
		assert.Equal(t, "Plate HXY0001 already registered.", dErrors.Message(err))
	})

	t.Run("own plate is not a conflict", func(t *testing.T) {
		same := "HXY0001"
		_, err := s.UpdateByUser(ctx, "0801199912345", Changes{CarPlate: &same})
		require.NoError(t, err)
	})
}
