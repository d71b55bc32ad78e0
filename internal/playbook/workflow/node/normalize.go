package node

// Normalize rewrites a stored node config into the canonical shape the rest
// of the builder works with. Older producers wrote snake_case or short
// aliases; those keys are folded onto the canonical key when it is absent
// and then dropped.
//
// Normalize never fails: a raw value that is not a JSON object is returned
// unchanged, and the input map is never mutated. Running it twice yields the
// same result as running it once.
func Normalize(t Type, raw any) any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return raw
	}

	switch t {
	case TypeAction:
		return normalizeAction(obj)
	case TypeTrigger:
		return normalizeTrigger(obj)
	default:
		return raw
	}
}

func normalizeAction(raw map[string]any) map[string]any {
	out := shallowCopy(raw)

	adoptAlias(out, "actionType", "action_type")
	adoptAlias(out, "parameters", "params")
	adoptAlias(out, "vendor", "adapter")

	if !present(out, "vendor") {
		out["vendor"] = DefaultVendor
	}

	return out
}

func normalizeTrigger(raw map[string]any) map[string]any {
	out := shallowCopy(raw)

	adoptAlias(out, "triggerType", "type")

	if _, isObject := out["conditions"].(map[string]any); !isObject {
		if severity, ok := out["severity"]; ok {
			out["conditions"] = map[string]any{"severity": severity}
			delete(out, "severity")
		}
	}

	return out
}

// adoptAlias moves m[alias] onto m[canonical] unless canonical already holds
// a value. The alias key is removed either way.
func adoptAlias(m map[string]any, canonical, alias string) {
	value, ok := m[alias]
	if !ok {
		return
	}
	if !present(m, canonical) {
		m[canonical] = value
	}
	delete(m, alias)
}

// present treats JSON null the same as a missing key.
func present(m map[string]any, key string) bool {
	value, ok := m[key]
	return ok && value != nil
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
