package medications

import "context"

type Repository interface {
	Create(ctx context.Context, m Medication) error
	GetByID(ctx context.Context, id string) (Medication, error)
	List(ctx context.Context, filter ListFilter) ([]Medication, error)
}

type ListFilter struct {
	Query string // substring sobre generic/brand name
	Limit int
}
