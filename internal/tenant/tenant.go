package tenant

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	HeaderName = "X-Tenant-ID"
	CookieName = "tenant_id"
)

type Tenant struct {
	ID        uuid.UUID
	Name      string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type Response struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type CreateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func ToResponse(t Tenant) Response {
	return Response{
		ID:        t.ID.String(),
		Name:      t.Name,
		CreatedAt: t.CreatedAt.Time.UTC().Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Time.UTC().Format(time.RFC3339),
	}
}
