package node

const (
	DefaultTriggerType  = "violation"
	DefaultVendor       = "wazuh"
	DefaultActionType   = "send_alert"
	DefaultOperator     = "equals"
	DefaultActionTarget = "{{signal.asset_id}}"
)

// DefaultConfig returns the starting config of a freshly created node so the
// editor panel always has a fillable object. Every call returns a new value.
func DefaultConfig(t Type) Config {
	switch t {
	case TypeTrigger:
		return TriggerConfig{
			TriggerType: DefaultTriggerType,
			Conditions: map[string]any{
				"severity": []any{"critical"},
			},
		}
	case TypeCondition:
		return ConditionConfig{
			Field:    "",
			Operator: DefaultOperator,
			Value:    "",
		}
	case TypeAction:
		return ActionConfig{
			Vendor:     DefaultVendor,
			ActionType: DefaultActionType,
			Parameters: map[string]any{
				"target": DefaultActionTarget,
			},
		}
	default:
		return RawConfig{}
	}
}
