package configfile

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/wolfeidau/unibuild/pkg/builder"
)

// Hook target types, matched exactly so the hooks stay inert for every other
// field.
var (
	removeConsoleType = reflect.TypeOf(builder.RemoveConsole{})
	browserslistType  = reflect.TypeOf(builder.BrowserslistOverride{})
	proxyRuleType     = reflect.TypeOf(builder.ProxyRule{})
	pluginRefType     = reflect.TypeOf(builder.PluginRef{})
)

// removeConsoleHook accepts performance.removeConsole as a bool, a single
// method name or a list of method names.
func removeConsoleHook(from, to reflect.Value) (any, error) {
	if to.Type() != removeConsoleType {
		return from.Interface(), nil
	}

	switch from.Kind() {
	case reflect.Bool:
		return builder.RemoveConsole{All: from.Bool()}, nil
	case reflect.String, reflect.Slice:
		methods, ok := stringList(from.Interface())
		if !ok {
			return nil, errors.New("removeConsole entries must be strings")
		}
		return builder.RemoveConsole{Methods: methods}, nil
	default:
		return from.Interface(), nil
	}
}

// browserslistHook accepts output.overrideBrowserslist as a single query, a
// flat query list applied to every target, or a map keyed by target name.
func browserslistHook(from, to reflect.Value) (any, error) {
	if to.Type() != browserslistType {
		return from.Interface(), nil
	}

	switch from.Kind() {
	case reflect.String, reflect.Slice:
		queries, ok := stringList(from.Interface())
		if !ok {
			return nil, errors.New("overrideBrowserslist entries must be strings")
		}
		return builder.BrowserslistOverride{Queries: queries}, nil
	case reflect.Map:
		byTargets := make(map[builder.Target][]string, from.Len())

		for _, key := range from.MapKeys() {
			name, ok := key.Interface().(string)
			if !ok || !builder.Target(name).Valid() {
				// Not a per target map, let the struct decode handle it.
				return from.Interface(), nil
			}

			queries, ok := stringList(from.MapIndex(key).Interface())
			if !ok {
				return nil, fmt.Errorf("overrideBrowserslist.%s entries must be strings", name)
			}

			byTargets[builder.Target(name)] = queries
		}

		return builder.BrowserslistOverride{ByTargets: byTargets}, nil
	default:
		return from.Interface(), nil
	}
}

// proxyRuleHook accepts a dev.proxy rule written as a bare target URL.
func proxyRuleHook(from, to reflect.Value) (any, error) {
	if to.Type() != proxyRuleType || from.Kind() != reflect.String {
		return from.Interface(), nil
	}

	return builder.ProxyRule{Target: from.String()}, nil
}

// pluginRefHook accepts a plugin declared as a bare name.
func pluginRefHook(from, to reflect.Value) (any, error) {
	if to.Type() != pluginRefType || from.Kind() != reflect.String {
		return from.Interface(), nil
	}

	return builder.PluginRef{Name: from.String()}, nil
}

// scalarToSliceHook wraps a lone string where the schema wants a list, so
// entry files and include patterns can be written without brackets.
func scalarToSliceHook(from, to reflect.Value) (any, error) {
	if to.Kind() != reflect.Slice || from.Kind() != reflect.String {
		return from.Interface(), nil
	}

	return []string{from.String()}, nil
}

// boolToStructHook lets optional feature blocks be enabled as a bare true. A
// bare false leaves the pointer nil, which reads as the feature being off.
func boolToStructHook(from, to reflect.Value) (any, error) {
	if from.Kind() != reflect.Bool {
		return from.Interface(), nil
	}

	t := to.Type()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return from.Interface(), nil
	}

	if !from.Bool() {
		return nil, nil
	}

	return map[string]any{}, nil
}

// stringList coerces a decoded scalar or list into a string slice.
func stringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
