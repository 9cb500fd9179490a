package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() FormInput {
	return FormInput{
		Age:          "55",
		Gender:       "male",
		Smoking:      true,
		Hypertension: true,
		SBP:          "150",
		TC:           "6.0",
		LDL:          "4.0",
		HDL:          "0.9",
	}
}

func TestParseClinicalInput_Valid(t *testing.T) {
	input, err := ParseClinicalInput(validForm())
	require.NoError(t, err)

	assert.Equal(t, ClinicalInput{
		Age:          55,
		Gender:       MALE,
		Smoking:      true,
		Hypertension: true,
		SBP:          150,
		TC:           6.0,
		LDL:          4.0,
		HDL:          0.9,
	}, input)
}

func TestParseClinicalInput_DefaultsAndNormalization(t *testing.T) {
	form := validForm()
	form.Gender = ""
	form.SBP = " 132.7 "
	form.LDL = "2.61"

	input, err := ParseClinicalInput(form)
	require.NoError(t, err)
	assert.Equal(t, MALE, input.Gender)
	assert.Equal(t, 132.0, input.SBP)
	assert.Equal(t, 2.61, input.LDL)

	form.Gender = "FEMALE"
	input, err = ParseClinicalInput(form)
	require.NoError(t, err)
	assert.Equal(t, FEMALE, input.Gender)
}

func TestParseClinicalInput_MissingFields(t *testing.T) {
	form := validForm()
	form.Age = ""
	form.HDL = "  "
	form.TC = "high"

	_, err := ParseClinicalInput(form)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"age", "tc", "hdl"}, fields)
}

func TestParseClinicalInput_AgeRange(t *testing.T) {
	tests := []struct {
		age     string
		wantErr bool
	}{
		{"17", true},
		{"18", false},
		{"100", false},
		{"101", true},
	}

	for _, tt := range tests {
		t.Run(tt.age, func(t *testing.T) {
			form := validForm()
			form.Age = tt.age
			_, err := ParseClinicalInput(form)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateClinicalInput_Gender(t *testing.T) {
	err := ValidateClinicalInput(ClinicalInput{Age: 40, Gender: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gender")

	assert.NoError(t, ValidateClinicalInput(ClinicalInput{Age: 40, Gender: FEMALE}))
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func TestInputPayload_ClinicalInput(t *testing.T) {
	payload := InputPayload{
		Age: intPtr(46), Gender: MALE, Smoking: true,
		SBP: floatPtr(120), TC: floatPtr(4.5), LDL: floatPtr(2.5), HDL: floatPtr(0),
	}

	input, err := payload.ClinicalInput()
	require.NoError(t, err)
	assert.Equal(t, ClinicalInput{
		Age: 46, Gender: MALE, Smoking: true,
		SBP: 120, TC: 4.5, LDL: 2.5, HDL: 0,
	}, input)
}

func TestInputPayload_MissingFields(t *testing.T) {
	_, err := InputPayload{Gender: MALE, Hypertension: true}.ClinicalInput()
	require.Error(t, err)

	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"age", "sbp", "tc", "ldl", "hdl"}, fields)
}

func TestInputPayload_InvalidValues(t *testing.T) {
	payload := InputPayload{
		Age: intPtr(12), Gender: "other",
		SBP: floatPtr(120), TC: floatPtr(4.5), LDL: floatPtr(2.5), HDL: floatPtr(1.2),
	}

	_, err := payload.ClinicalInput()
	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs, 2)
}
