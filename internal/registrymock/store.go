// Package registrymock is an in-memory stand-in for the card registry API, used for
// local development and end-to-end tests. It answers with the same flat records and
// error bodies as the real service.
package registrymock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardportal/internal/registry/models"
	dErrors "cardportal/pkg/domain-errors"
)

// MediaPrefix is the URL prefix under which stored documents are served.
const MediaPrefix = "/media/documentos/"

// timestampLayout matches the registry's microsecond UTC timestamps.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type entry struct {
	idUser     string
	fullName   string
	cardNumber string
	state      models.State
	carPlate   string
	brand      string
	document   string
	created    time.Time
	updated    time.Time
}

// Registration is a validated registration request.
type Registration struct {
	IDUser       string
	FullName     string
	CardNumber   string
	State        models.State
	CarPlate     string
	Brand        string
	Document     []byte
	DocumentName string
}

// Changes are the fields of an update; nil leaves a field as it is.
type Changes struct {
	FullName *string
	State    *models.State
	CarPlate *string
	Brand    *string
}

// Store keeps users, cards, vehicles and documents in memory. One user owns exactly
// one card, vehicle and document.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*entry
	cards     map[string]string // card number -> user id
	plates    map[string]string // car plate -> user id
	documents map[string][]byte
	now       func() time.Time
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithClock sets the time source for created/updated stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		users:     make(map[string]*entry),
		cards:     make(map[string]string),
		plates:    make(map[string]string),
		documents: make(map[string][]byte),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindByUser returns the record of a user id.
func (s *Store) FindByUser(_ context.Context, idUser string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[idUser]
	if !ok {
		return models.Record{}, dErrors.New(dErrors.CodeNotFound, "No User matches the given query.")
	}
	return e.record(), nil
}

// FindByCard returns the record owning a card number.
func (s *Store) FindByCard(_ context.Context, cardNumber string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idUser, ok := s.cards[cardNumber]
	if !ok {
		return models.Record{}, dErrors.New(dErrors.CodeNotFound, "No ParkingCard matches the given query.")
	}
	return s.users[idUser].record(), nil
}

// Register creates a user with its card, vehicle and document in one step.
// A taken user id, card number or plate is a conflict and nothing is stored.
func (s *Store) Register(_ context.Context, reg Registration) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.users[reg.IDUser]; taken {
		return models.Record{}, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("User id %s already registered.", reg.IDUser))
	}
	if _, taken := s.cards[reg.CardNumber]; taken {
		return models.Record{}, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("Card number %s already in use.", reg.CardNumber))
	}
	if _, taken := s.plates[reg.CarPlate]; taken {
		return models.Record{}, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("Vehicle plate %s already registered.", reg.CarPlate))
	}

	name := uuid.NewString() + ".pdf"
	s.documents[name] = reg.Document

	now := s.now().UTC()
	e := &entry{
		idUser:     reg.IDUser,
		fullName:   reg.FullName,
		cardNumber: reg.CardNumber,
		state:      reg.State,
		carPlate:   reg.CarPlate,
		brand:      reg.Brand,
		document:   name,
		created:    now,
		updated:    now,
	}
	s.users[e.idUser] = e
	s.cards[e.cardNumber] = e.idUser
	s.plates[e.carPlate] = e.idUser
	return e.record(), nil
}

// UpdateByUser applies changes to the record of a user id.
func (s *Store) UpdateByUser(_ context.Context, idUser string, c Changes) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[idUser]
	if !ok {
		return models.Record{}, dErrors.New(dErrors.CodeNotFound, "No User matches the given query.")
	}
	return s.apply(e, c)
}

// UpdateByCard applies changes to the record owning a card number.
func (s *Store) UpdateByCard(_ context.Context, cardNumber string, c Changes) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idUser, ok := s.cards[cardNumber]
	if !ok {
		return models.Record{}, dErrors.New(dErrors.CodeNotFound, "No ParkingCard matches the given query.")
	}
	return s.apply(s.users[idUser], c)
}

// apply must be called with the write lock held.
func (s *Store) apply(e *entry, c Changes) (models.Record, error) {
	if c.CarPlate != nil && *c.CarPlate != e.carPlate {
		if _, taken := s.plates[*c.CarPlate]; taken {
			return models.Record{}, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("Plate %s already registered.", *c.CarPlate))
		}
		delete(s.plates, e.carPlate)
		e.carPlate = *c.CarPlate
		s.plates[e.carPlate] = e.idUser
	}
	if c.FullName != nil {
		e.fullName = *c.FullName
	}
	if c.State != nil {
		e.state = *c.State
	}
	if c.Brand != nil {
		e.brand = *c.Brand
	}
	e.updated = s.now().UTC()
	return e.record(), nil
}

// Document returns a stored document by file name.
func (s *Store) Document(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[name]
	return doc, ok
}

func (e *entry) record() models.Record {
	return models.Record{
		IDUser:                e.idUser,
		FullName:              e.fullName,
		CardNumber:            e.cardNumber,
		State:                 e.state,
		CarPlate:              e.carPlate,
		Brand:                 e.brand,
		AuthorizationDocument: MediaPrefix + e.document,
		Created:               e.created.Format(timestampLayout),
		Updated:               e.updated.Format(timestampLayout),
	}
}
