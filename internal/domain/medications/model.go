package medications

import "time"

// Route define la vía de administración.
type Route string

const (
	RouteOral       Route = "oral"
	RouteTopical    Route = "topical"
	RouteInjection  Route = "injection"
	RouteOphthalmic Route = "ophthalmic"
	RouteOtic       Route = "otic"
	RouteInhaled    Route = "inhaled"
)

type Form string

const (
	FormTablet   Form = "tablet"
	FormCapsule  Form = "capsule"
	FormLiquid   Form = "liquid"
	FormOintment Form = "ointment"
	FormDrops    Form = "drops"
	FormInjector Form = "injector"
)

// Medication es un entry del catálogo compartido entre hogares.
// Es data de referencia inmutable: no hay update ni delete mientras
// exista un régimen que lo apunte.
type Medication struct {
	ID string

	GenericName string
	BrandName   string

	Route    Route
	Form     Form
	Strength string // "50 mg", "2.5 mg/ml"

	CreatedAt time.Time
}
