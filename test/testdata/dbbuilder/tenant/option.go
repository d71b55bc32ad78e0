package tenantbuilder

import (
	"github.com/google/uuid"
)

type Option func(*FactoryParams)

type FactoryParams struct {
	ID   uuid.UUID
	Name string
}

func WithID(id uuid.UUID) Option {
	return func(p *FactoryParams) {
		p.ID = id
	}
}

func WithName(name string) Option {
	return func(p *FactoryParams) {
		p.Name = name
	}
}
