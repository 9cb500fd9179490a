package domain

import (
	"strconv"
	"strings"
)

// Accepted age range for an assessment
const (
	MinAge = 18
	MaxAge = 100
)

// FormInput is the raw assessment form as submitted: numeric fields arrive as text.
type FormInput struct {
	Age          string `json:"age" form:"age"`
	Gender       string `json:"gender" form:"gender"`
	Smoking      bool   `json:"smoking" form:"smoking"`
	Diabetes     bool   `json:"diabetes" form:"diabetes"`
	Hypertension bool   `json:"hypertension" form:"hypertension"`
	HasASCVD     bool   `json:"has_ascvd" form:"has_ascvd"`
	SBP          string `json:"sbp" form:"sbp"`
	TC           string `json:"tc" form:"tc"`
	LDL          string `json:"ldl" form:"ldl"`
	HDL          string `json:"hdl" form:"hdl"`
}

// ParseClinicalInput converts a submitted form into a ClinicalInput.
// Every required numeric field must be present and parse; age and SBP are
// integers, lipids are decimals. Gender defaults to male when empty.
func ParseClinicalInput(form FormInput) (ClinicalInput, error) {
	var errs ValidationErrors

	age, err := parseRequiredInt("age", form.Age)
	if err != nil {
		errs = append(errs, err)
	}
	sbp, err := parseRequiredInt("sbp", form.SBP)
	if err != nil {
		errs = append(errs, err)
	}
	tc, err := parseRequiredFloat("tc", form.TC)
	if err != nil {
		errs = append(errs, err)
	}
	ldl, err := parseRequiredFloat("ldl", form.LDL)
	if err != nil {
		errs = append(errs, err)
	}
	hdl, err := parseRequiredFloat("hdl", form.HDL)
	if err != nil {
		errs = append(errs, err)
	}

	gender := Gender(strings.ToLower(strings.TrimSpace(form.Gender)))
	if gender == "" {
		gender = MALE
	}

	if len(errs) > 0 {
		return ClinicalInput{}, errs
	}

	input := ClinicalInput{
		Age:          age,
		Gender:       gender,
		Smoking:      form.Smoking,
		Diabetes:     form.Diabetes,
		Hypertension: form.Hypertension,
		HasASCVD:     form.HasASCVD,
		SBP:          float64(sbp),
		TC:           tc,
		LDL:          ldl,
		HDL:          hdl,
	}

	if err := ValidateClinicalInput(input); err != nil {
		return ClinicalInput{}, err
	}
	return input, nil
}

// InputPayload is a typed JSON assessment input. Numeric fields are pointers so an
// absent field is reported instead of being read as zero.
type InputPayload struct {
	Age          *int     `json:"age"`
	Gender       Gender   `json:"gender"`
	Smoking      bool     `json:"smoking"`
	Diabetes     bool     `json:"diabetes"`
	Hypertension bool     `json:"hypertension"`
	HasASCVD     bool     `json:"has_ascvd"`
	SBP          *float64 `json:"sbp"`
	TC           *float64 `json:"tc"`
	LDL          *float64 `json:"ldl"`
	HDL          *float64 `json:"hdl"`
}

// ClinicalInput checks that every required field is present and valid.
func (p InputPayload) ClinicalInput() (ClinicalInput, error) {
	var errs ValidationErrors

	required := func(field string, v *float64) float64 {
		if v == nil {
			errs = append(errs, NewValidationError(field, "is required", nil))
			return 0
		}
		return *v
	}

	age := 0
	if p.Age == nil {
		errs = append(errs, NewValidationError("age", "is required", nil))
	} else {
		age = *p.Age
	}
	input := ClinicalInput{
		Age:          age,
		Gender:       p.Gender,
		Smoking:      p.Smoking,
		Diabetes:     p.Diabetes,
		Hypertension: p.Hypertension,
		HasASCVD:     p.HasASCVD,
		SBP:          required("sbp", p.SBP),
		TC:           required("tc", p.TC),
		LDL:          required("ldl", p.LDL),
		HDL:          required("hdl", p.HDL),
	}
	if len(errs) > 0 {
		return ClinicalInput{}, errs
	}

	if err := ValidateClinicalInput(input); err != nil {
		return ClinicalInput{}, err
	}
	return input, nil
}

// ValidateClinicalInput checks the constraints the classifier leaves to its caller.
func ValidateClinicalInput(input ClinicalInput) error {
	var errs ValidationErrors

	if !input.Gender.IsValid() {
		errs = append(errs, NewValidationError("gender", "must be male or female", string(input.Gender)))
	}
	if input.Age < MinAge || input.Age > MaxAge {
		errs = append(errs, NewValidationError("age", "must be between 18 and 100", input.Age))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func parseRequiredInt(field, raw string) (int, *ValidationError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, NewValidationError(field, "is required", raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// accept "130.0" style input, truncating like a form's integer parse
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0, NewValidationError(field, "must be a whole number", raw)
		}
		n = int(f)
	}
	return n, nil
}

func parseRequiredFloat(field, raw string) (float64, *ValidationError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, NewValidationError(field, "is required", raw)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewValidationError(field, "must be a number", raw)
	}
	return f, nil
}
