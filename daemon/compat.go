package daemon

// findCompatible decides whether a setup request can reuse a live driver
// instead of starting a new one: the class must match and, for every key
// present in both parameter sets, the values must be equal. Keys absent
// from either side are don't-care. The search is linear over drivers in
// insertion order; first match wins.
func findCompatible(order []string, drivers map[string]*driverRecord, class string, params map[string]interface{}) *driverRecord {
	for _, name := range order {
		d, ok := drivers[name]
		if !ok {
			continue
		}
		if d.class != class {
			continue
		}
		if parametersCompatible(params, d.parameters) {
			return d
		}
	}
	return nil
}

func parametersCompatible(incoming, existing map[string]interface{}) bool {
	for k, v := range incoming {
		ev, ok := existing[k]
		if !ok {
			continue
		}
		if !valuesEqual(v, ev) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
