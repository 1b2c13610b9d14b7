package service

import "github.com/noah-isme/asrama-api/internal/models"

// Eligibility maps each gender to the buildings it may be assigned to.
// It is plain data so the partition can change through configuration.
type Eligibility map[models.Gender][]string

// DefaultEligibility is the partition used by the dormitory office.
func DefaultEligibility() Eligibility {
	return Eligibility{
		models.GenderMale:   {"B2", "B3"},
		models.GenderFemale: {"B1", "B4", "B5"},
	}
}

// NewEligibility builds a partition from configured building lists.
func NewEligibility(male, female []string) Eligibility {
	e := Eligibility{}
	if len(male) > 0 {
		e[models.GenderMale] = append([]string(nil), male...)
	}
	if len(female) > 0 {
		e[models.GenderFemale] = append([]string(nil), female...)
	}
	return e
}

// Buildings returns the eligible buildings for gender.
func (e Eligibility) Buildings(gender models.Gender) []string {
	return e[gender]
}

// Allows reports whether gender may live in building.
func (e Eligibility) Allows(gender models.Gender, building string) bool {
	for _, b := range e[gender] {
		if b == building {
			return true
		}
	}
	return false
}
