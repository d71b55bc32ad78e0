package internal

import (
	"errors"

	"NYCU-SDC/playbook-builder-backend/internal/playbook/schedule"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"

	"github.com/NYCU-SDC/summer/pkg/problem"
)

var (
	ErrInternalServerError = errors.New("internal server error")
	ErrNotFound            = errors.New("not found")
	ErrValidationFailed    = errors.New("validation failed")

	// Tenant Errors
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrNoTenantInContext  = errors.New("no tenant found in request context")
	ErrInvalidTenantID    = errors.New("invalid tenant id")
	ErrMissingTenantField = errors.New("missing tenant, set the X-Tenant-ID header or the tenant_id cookie")

	// Playbook Errors
	ErrPlaybookNotFound = errors.New("playbook not found")
	ErrInvalidWorkflow  = errors.New("invalid workflow document")
	ErrInvalidSchedule  = errors.New("invalid schedule")

	// Builder Errors
	ErrSessionNotFound   = errors.New("builder session not found")
	ErrBuilderBusy       = errors.New("a save or test is already in progress")
	ErrInvalidTransition = errors.New("operation not allowed in the current builder state")
	ErrStaleLoad         = errors.New("load superseded by a newer request")
	ErrLoadFailed        = errors.New("failed to load playbook")
)

func NewProblemWriter() *problem.HttpWriter {
	return problem.NewWithMapping(ErrorHandler)
}

func ErrorHandler(err error) problem.Problem {
	var connErr *workflow.ConnectionError

	switch {
	case errors.Is(err, ErrInternalServerError):
		return problem.NewInternalServerProblem("internal server error")
	case errors.Is(err, ErrNotFound):
		return problem.NewNotFoundProblem("not found")

	// Tenant Errors
	case errors.Is(err, ErrTenantNotFound):
		return problem.NewNotFoundProblem("tenant not found")
	case errors.Is(err, ErrNoTenantInContext):
		return problem.NewUnauthorizedProblem("no tenant found in request context")
	case errors.Is(err, ErrInvalidTenantID):
		return problem.NewValidateProblem("invalid tenant id")
	case errors.Is(err, ErrMissingTenantField):
		return problem.NewUnauthorizedProblem("missing tenant, set the X-Tenant-ID header or the tenant_id cookie")

	// Playbook Errors
	case errors.Is(err, ErrPlaybookNotFound):
		return problem.NewNotFoundProblem("playbook not found")
	case errors.Is(err, ErrInvalidWorkflow):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, ErrInvalidSchedule):
		return problem.NewValidateProblem(err.Error())

	// Builder Errors
	case errors.Is(err, ErrSessionNotFound):
		return problem.NewNotFoundProblem("builder session not found")
	case errors.Is(err, ErrBuilderBusy):
		return problem.NewValidateProblem("a save or test is already in progress")
	case errors.Is(err, ErrInvalidTransition):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, ErrStaleLoad):
		return problem.NewValidateProblem("load superseded by a newer request")
	case errors.Is(err, ErrLoadFailed):
		return problem.NewInternalServerProblem(err.Error())

	// Workflow Errors
	case errors.As(err, &connErr):
		return problem.NewValidateProblem(connErr.Reason)
	case errors.Is(err, workflow.ErrEmptyWorkflow):
		return problem.NewValidateProblem(workflow.MessageEmptyWorkflow)
	case errors.Is(err, workflow.ErrNodeNotFound):
		return problem.NewNotFoundProblem(err.Error())
	case errors.Is(err, workflow.ErrConfigTypeMismatch):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, workflow.ErrUnknownNodeType):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, node.ErrInvalidConfig):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, schedule.ErrUnknownMode):
		return problem.NewValidateProblem(err.Error())
	case errors.Is(err, schedule.ErrInvalidExpression):
		return problem.NewValidateProblem(err.Error())

	// Validation Errors
	case errors.Is(err, ErrValidationFailed):
		return problem.NewValidateProblem("validation failed")
	}
	return problem.Problem{}
}
