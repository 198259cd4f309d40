package engine

import (
	"reflect"

	"github.com/miradorstack/mirador-gate/internal/models"
)

// alertsField is the only report field the summarizer inspects.
const alertsField = "alerts"

// Summarize reduces a raw report into the signal record consumed by policies.
// A missing or empty alerts field means no alerts.
func Summarize(report models.Report) models.Signals {
	anyAlerts := truthy(report[alertsField])
	return models.Signals{
		AnyAlerts: anyAlerts,
		// No upstream collaborator reports severity yet, so this never fires.
		CriticalAlerts: false,
		AllClear:       !anyAlerts,
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return truthy(rv.Elem().Interface())
	default:
		return true
	}
}
