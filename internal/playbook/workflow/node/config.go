package node

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid node config")

// Config is the per-type node configuration. The concrete variant is always
// the one matching the node's Type.
type Config interface {
	NodeType() Type
	// Map returns the canonical JSON object of the config as a deep copy.
	Map() map[string]any
}

// TriggerConfig configures which signal starts the playbook
type TriggerConfig struct {
	TriggerType string
	Conditions  map[string]any
	// Extra holds keys the editor stored that the builder does not interpret.
	Extra map[string]any
}

func (c TriggerConfig) NodeType() Type { return TypeTrigger }

func (c TriggerConfig) Map() map[string]any {
	m := copyMap(c.Extra)
	m["triggerType"] = c.TriggerType
	m["conditions"] = copyMap(c.Conditions)
	return m
}

func (c TriggerConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

// ConditionConfig compares a signal field against a value
type ConditionConfig struct {
	Field    string
	Operator string
	Value    any
	Extra    map[string]any
}

func (c ConditionConfig) NodeType() Type { return TypeCondition }

func (c ConditionConfig) Map() map[string]any {
	m := copyMap(c.Extra)
	m["field"] = c.Field
	m["operator"] = c.Operator
	m["value"] = copyValue(c.Value)
	return m
}

func (c ConditionConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

// ActionConfig describes an enforcement action dispatched through a vendor adapter
type ActionConfig struct {
	Vendor     string
	ActionType string
	Parameters map[string]any
	Extra      map[string]any
}

func (c ActionConfig) NodeType() Type { return TypeAction }

func (c ActionConfig) Map() map[string]any {
	m := copyMap(c.Extra)
	m["vendor"] = c.Vendor
	m["actionType"] = c.ActionType
	m["parameters"] = copyMap(c.Parameters)
	return m
}

func (c ActionConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

// RawConfig is the untyped fallback for node types outside the known set.
type RawConfig map[string]any

func (c RawConfig) NodeType() Type { return "" }

func (c RawConfig) Map() map[string]any {
	return copyMap(c)
}

// Decode converts a canonical config object into the typed variant for t.
// A nil object decodes to the zero variant; legacy aliases are not
// understood here, run Normalize first.
func Decode(t Type, raw any) (Config, error) {
	var obj map[string]any
	switch v := raw.(type) {
	case nil:
		obj = map[string]any{}
	case map[string]any:
		obj = v
	default:
		return nil, fmt.Errorf("%w: %s config must be an object, got %T", ErrInvalidConfig, t, raw)
	}

	switch t {
	case TypeTrigger:
		return decodeTrigger(obj)
	case TypeCondition:
		return decodeCondition(obj)
	case TypeAction:
		return decodeAction(obj)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func decodeTrigger(obj map[string]any) (Config, error) {
	c := TriggerConfig{Extra: map[string]any{}}
	for key, value := range obj {
		var err error
		switch key {
		case "triggerType":
			c.TriggerType, err = stringField(TypeTrigger, key, value)
		case "conditions":
			c.Conditions, err = objectField(TypeTrigger, key, value)
		default:
			c.Extra[key] = copyValue(value)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(c.Extra) == 0 {
		c.Extra = nil
	}
	return c, nil
}

func decodeCondition(obj map[string]any) (Config, error) {
	c := ConditionConfig{Extra: map[string]any{}}
	for key, value := range obj {
		var err error
		switch key {
		case "field":
			c.Field, err = stringField(TypeCondition, key, value)
		case "operator":
			c.Operator, err = stringField(TypeCondition, key, value)
		case "value":
			c.Value = copyValue(value)
		default:
			c.Extra[key] = copyValue(value)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(c.Extra) == 0 {
		c.Extra = nil
	}
	return c, nil
}

func decodeAction(obj map[string]any) (Config, error) {
	c := ActionConfig{Extra: map[string]any{}}
	for key, value := range obj {
		var err error
		switch key {
		case "vendor":
			c.Vendor, err = stringField(TypeAction, key, value)
		case "actionType":
			c.ActionType, err = stringField(TypeAction, key, value)
		case "parameters":
			c.Parameters, err = objectField(TypeAction, key, value)
		default:
			c.Extra[key] = copyValue(value)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(c.Extra) == 0 {
		c.Extra = nil
	}
	return c, nil
}

func stringField(t Type, key string, value any) (string, error) {
	if value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s config field '%s' must be a string, got %T", ErrInvalidConfig, t, key, value)
	}
	return s, nil
}

func objectField(t Type, key string, value any) (map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s config field '%s' must be an object, got %T", ErrInvalidConfig, t, key, value)
	}
	return copyMap(obj), nil
}

// copyMap deep-copies a JSON object; a nil map yields an empty one.
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return copyMap(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of c with the same concrete variant.
func Clone(c Config) Config {
	switch v := c.(type) {
	case TriggerConfig:
		return TriggerConfig{TriggerType: v.TriggerType, Conditions: cloneObject(v.Conditions), Extra: cloneObject(v.Extra)}
	case ConditionConfig:
		return ConditionConfig{Field: v.Field, Operator: v.Operator, Value: copyValue(v.Value), Extra: cloneObject(v.Extra)}
	case ActionConfig:
		return ActionConfig{Vendor: v.Vendor, ActionType: v.ActionType, Parameters: cloneObject(v.Parameters), Extra: cloneObject(v.Extra)}
	case RawConfig:
		return RawConfig(copyMap(v))
	default:
		return c
	}
}

// cloneObject is copyMap that keeps nil as nil.
func cloneObject(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return copyMap(m)
}
