package tenantbuilder

import (
	"context"
	"testing"

	"NYCU-SDC/playbook-builder-backend/internal/tenant"
	"NYCU-SDC/playbook-builder-backend/test/testdata"
	"NYCU-SDC/playbook-builder-backend/test/testdata/dbbuilder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Builder struct {
	t  *testing.T
	db dbbuilder.DBTX
}

func New(t *testing.T, db dbbuilder.DBTX) *Builder {
	return &Builder{t: t, db: db}
}

func (b Builder) Queries() *tenant.Queries {
	return tenant.New(b.db)
}

func (b Builder) Create(opts ...Option) tenant.Tenant {
	queries := b.Queries()

	p := &FactoryParams{
		ID:   uuid.New(),
		Name: testdata.RandomCompany(),
	}
	for _, opt := range opts {
		opt(p)
	}

	created, err := queries.Create(context.Background(), tenant.CreateParams{
		ID:   p.ID,
		Name: p.Name,
	})
	require.NoError(b.t, err)

	return created
}
