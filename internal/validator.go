package internal

import (
	"NYCU-SDC/playbook-builder-backend/internal/playbook/schedule"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"

	"github.com/go-playground/validator/v10"
)

// NodeTypeValidator accepts the closed set of workflow node types.
func NodeTypeValidator(fl validator.FieldLevel) bool {
	return node.Type(fl.Field().String()).Valid()
}

// ScheduleModeValidator accepts an empty value or one of the schedule modes.
func ScheduleModeValidator(fl validator.FieldLevel) bool {
	_, err := schedule.ParseMode(fl.Field().String())
	return err == nil
}

func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nodetype", NodeTypeValidator)
	_ = v.RegisterValidation("schedulemode", ScheduleModeValidator)
	return v
}
