package animals

import "time"

// Species define las especies soportadas.
// @Enum dog, cat, other
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

// Sex define el sexo del animal.
// @Enum male, female, unknown
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

type AnimalStatus string

const (
	StatusActive   AnimalStatus = "active"
	StatusArchived AnimalStatus = "archived"
)

// Animal representa una mascota del hogar.
// Timezone es un override opcional; si está vacío, aplica la zona del hogar.
// Los horarios de medicación se interpretan SIEMPRE en esa zona, no en la
// del navegador de quien consulta.
type Animal struct {
	ID          string
	HouseholdID string

	Name    string
	Species Species
	Breed   string
	Sex     Sex

	BirthDate *time.Time
	WeightKg  *float64

	Timezone string // IANA, opcional
	Notes    string

	Status AnimalStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}
