package registrymock

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"cardportal/internal/registry/models"
	"cardportal/pkg/platform/httputil"
)

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
	msgNoFile   = "No file was submitted."
	msgEmpty    = "The submitted file is empty."
)

// Length rules of the registry's text fields.
var (
	ruleIDUser     = "min=13,max=20"
	ruleFullName   = "max=100"
	ruleCardNumber = "min=6,max=8"
	ruleCarPlate   = "min=6,max=8"
	ruleBrand      = "max=50"
)

var validate = validator.New()

// checkText validates a present text value against rules and records the registry's
// message for the first failing rule.
func checkText(errs httputil.FieldErrors, field, value, rules string) {
	if value == "" {
		errs.Add(field, msgBlank)
		return
	}
	err := validate.Var(value, rules)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return
	}
	switch fe := verrs[0]; fe.Tag() {
	case "min":
		errs.Add(field, fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param()))
	case "max":
		errs.Add(field, fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param()))
	default:
		errs.Add(field, "Enter a valid value.")
	}
}

func checkState(errs httputil.FieldErrors, field, value string) {
	for _, s := range models.States {
		if value == string(s) {
			return
		}
	}
	errs.Add(field, fmt.Sprintf("%q is not a valid choice.", value))
}

func checkDocument(errs httputil.FieldErrors, field, filename string, size int64) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext != "pdf" {
		errs.Add(field, fmt.Sprintf("File extension “%s” is not allowed. Allowed extensions are: pdf.", ext))
		return
	}
	if size == 0 {
		errs.Add(field, msgEmpty)
	}
}

// updateRequest is the JSON body of an update. Absent keys leave fields unchanged.
type updateRequest struct {
	FullName *string `json:"full_name"`
	State    *string `json:"state"`
	CarPlate *string `json:"car_plate"`
	Brand    *string `json:"brand"`
}

// Normalize trims surrounding whitespace like the registry's text fields do.
func (r *updateRequest) Normalize() {
	for _, p := range []*string{r.FullName, r.CarPlate, r.Brand} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

// Validate reports per-field errors keyed by JSON field name.
func (r *updateRequest) Validate() error {
	errs := httputil.FieldErrors{}
	if r.FullName != nil {
		checkText(errs, "full_name", *r.FullName, ruleFullName)
	}
	if r.State != nil {
		checkState(errs, "state", *r.State)
	}
	if r.CarPlate != nil {
		checkText(errs, "car_plate", *r.CarPlate, ruleCarPlate)
	}
	if r.Brand != nil {
		checkText(errs, "brand", *r.Brand, ruleBrand)
	}
	if errs.Empty() {
		return nil
	}
	return errs
}

func (r *updateRequest) changes() Changes {
	c := Changes{FullName: r.FullName, CarPlate: r.CarPlate, Brand: r.Brand}
	if r.State != nil {
		s := models.State(*r.State)
		c.State = &s
	}
	return c
}
