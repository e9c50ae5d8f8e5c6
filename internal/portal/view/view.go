// Package view builds the page models the portal renders and renders them through
// embedded templates. Every value reaches the output through html/template, so record
// content is escaped wherever it lands.
package view

import (
	"strings"
	"time"

	"cardportal/internal/portal/flash"
	"cardportal/internal/registry/models"
)

// DocumentLinkText is the text of the authorization document link.
const DocumentLinkText = "📄 Ver Documento"

// Options control how records are presented.
type Options struct {
	// DocumentBaseURL is prepended verbatim to the record's document path.
	DocumentBaseURL string
	// Location is the display time zone; nil means UTC.
	Location *time.Location
}

// Field is one labelled cell of the read-only grid.
type Field struct {
	Label string
	Value string
	// Class is added to the value element.
	Class string
	// Href turns the value into a link when set.
	Href string
}

// RecordView is the read-only grid of one record.
type RecordView struct {
	Fields []Field
}

// NewRecordView lays out rec in display order.
func NewRecordView(rec models.Record, opts Options) RecordView {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	doc := Field{Label: "Documento", Value: NA}
	if rec.AuthorizationDocument != "" {
		doc.Value = DocumentLinkText
		doc.Href = opts.DocumentBaseURL + rec.AuthorizationDocument
	}

	return RecordView{Fields: []Field{
		{Label: "ID de Usuario", Value: orNA(rec.IDUser)},
		{Label: "Nombre Completo", Value: orNA(rec.FullName)},
		{Label: "Número de Tarjeta", Value: orNA(rec.CardNumber)},
		{Label: "Estado", Value: rec.State.Label(), Class: rec.State.Class()},
		{Label: "Placa del Vehículo", Value: orNA(rec.CarPlate)},
		{Label: "Marca del Vehículo", Value: orNA(rec.Brand)},
		{Label: "Fecha de Creación", Value: FormatDate(rec.Created, loc)},
		{Label: "Fecha de Actualización", Value: FormatDate(rec.Updated, loc)},
		doc,
	}}
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

// Option is one choice of a select element.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

func stateOptions(selected models.State) []Option {
	opts := make([]Option, len(models.States))
	for i, s := range models.States {
		opts[i] = Option{Value: string(s), Label: s.Label(), Selected: s == selected}
	}
	return opts
}

// EditForm is the editable view of one record.
type EditForm struct {
	Kind     models.SearchKind
	Key      string
	FullName string
	CarPlate string
	Brand    string
	States   []Option
}

// NewEditForm pre-populates the form from rec. No state is selected when rec has none.
func NewEditForm(rec models.Record, kind models.SearchKind, key string) EditForm {
	return EditForm{
		Kind:     kind,
		Key:      key,
		FullName: rec.FullName,
		CarPlate: rec.CarPlate,
		Brand:    rec.Brand,
		States:   stateOptions(rec.State),
	}
}

// Heading titles the form.
func (f EditForm) Heading() string {
	return "Actualizar Información para: " + f.Key
}

// RegisterFields are the plain fields of the registration form, in form order.
var RegisterFields = []string{"id_user", "full_name", "card_number", "state", "car_plate", "brand"}

// RegisterForm keeps the values of the registration form between submissions.
type RegisterForm struct {
	Values map[string]string
}

// NewRegisterForm returns a form holding values; nil gives the empty form.
func NewRegisterForm(values map[string]string) RegisterForm {
	return RegisterForm{Values: values}
}

// Value returns the kept value of a field.
func (f RegisterForm) Value(name string) string {
	return f.Values[name]
}

// States lists the state choices; a new card defaults to active.
func (f RegisterForm) States() []Option {
	selected := models.State(f.Value("state"))
	if selected == "" {
		selected = models.StateActive
	}
	return stateOptions(selected)
}

// Tab identifies one of the three panels.
type Tab string

const (
	TabSearch   Tab = "consulta"
	TabUpdate   Tab = "actualizar"
	TabRegister Tab = "registro"
)

var tabLabels = []struct {
	tab   Tab
	label string
}{
	{TabSearch, "🔍 Consultar"},
	{TabUpdate, "✏️ Actualizar"},
	{TabRegister, "📝 Registrar"},
}

// ParseTab maps a query value to a tab; unknown values open the search tab.
func ParseTab(s string) Tab {
	switch Tab(strings.TrimSpace(s)) {
	case TabUpdate:
		return TabUpdate
	case TabRegister:
		return TabRegister
	default:
		return TabSearch
	}
}

// TabLink is one entry of the tab bar.
type TabLink struct {
	Tab    Tab
	Label  string
	Active bool
}

// SearchPanel is the state of the search tab.
type SearchPanel struct {
	Kind   models.SearchKind
	Query  string
	Result *RecordView
}

// UpdatePanel is the state of the update tab.
type UpdatePanel struct {
	Kind  models.SearchKind
	Query string
	Form  *EditForm
}

// Banner is the transient message shown at the top of the page.
type Banner struct {
	Kind           flash.Kind
	Text           string
	DismissSeconds int
}

// Page is everything one response renders.
type Page struct {
	Tab      Tab
	Banner   *Banner
	Search   SearchPanel
	Update   UpdatePanel
	Register RegisterForm
}

// NewPage starts a page on tab with default search kinds.
func NewPage(tab Tab) Page {
	return Page{
		Tab:    tab,
		Search: SearchPanel{Kind: models.KindUser},
		Update: UpdatePanel{Kind: models.KindUser},
	}
}

// WithBanner copies the current message of box into the page.
func (p Page) WithBanner(box *flash.Box) Page {
	if box == nil {
		return p
	}
	if msg, ok := box.Current(); ok {
		p.Banner = &Banner{Kind: msg.Kind, Text: msg.Text, DismissSeconds: int(flash.DismissAfter / time.Second)}
	}
	return p
}

// Tabs lists the tab bar with the current tab marked.
func (p Page) Tabs() []TabLink {
	links := make([]TabLink, len(tabLabels))
	for i, t := range tabLabels {
		links[i] = TabLink{Tab: t.tab, Label: t.label, Active: t.tab == p.Tab}
	}
	return links
}

// SearchKinds lists the search selector choices with kind selected.
func SearchKinds(kind models.SearchKind) []Option {
	return []Option{
		{Value: string(models.KindUser), Label: "ID de Usuario", Selected: kind == models.KindUser},
		{Value: string(models.KindCard), Label: "Número de Tarjeta", Selected: kind == models.KindCard},
	}
}
