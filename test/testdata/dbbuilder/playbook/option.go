package playbookbuilder

import (
	"github.com/google/uuid"
)

type Option func(*FactoryParams)

type FactoryParams struct {
	ID               uuid.UUID
	Name             string
	Description      string
	Category         string
	Enabled          bool
	TriggerType      string
	TriggerConfig    []byte
	Workflow         []byte
	LinkedControlIDs []string
	ScheduleCron     string
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

func WithEnabled(enabled bool) Option {
	return func(p *FactoryParams) {
		p.Enabled = enabled
	}
}

func WithWorkflow(workflow []byte) Option {
	return func(p *FactoryParams) {
		p.Workflow = workflow
	}
}

func WithScheduleCron(expr string) Option {
	return func(p *FactoryParams) {
		p.ScheduleCron = expr
	}
}

func WithLinkedControlIDs(ids ...string) Option {
	return func(p *FactoryParams) {
		p.LinkedControlIDs = ids
	}
}
