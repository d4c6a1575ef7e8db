// Package plugin describes the feature plugins a build activates. Descriptors
// are handed to the JS side adapter, which maps each name onto the real
// bundler plugin implementation.
package plugin

// Order places a plugin relative to the bulk of the list.
type Order string

const (
	// OrderPre plugins run before normal plugins.
	OrderPre Order = "pre"
	// OrderNormal is the default placement.
	OrderNormal Order = "normal"
	// OrderPost plugins run after normal plugins.
	OrderPost Order = "post"
)

// rank returns the sort rank for an order, treating unknown values as normal.
func (o Order) rank() int {
	switch o {
	case OrderPre:
		return 0
	case OrderPost:
		return 2
	default:
		return 1
	}
}

// Descriptor names a single plugin activation.
type Descriptor struct {
	// Name identifies the plugin to the adapter, e.g. "unibuild:svgr".
	Name string `json:"name"`
	// Order stages the plugin. Explicit After constraints win over stages.
	Order Order `json:"order,omitempty"`
	// After lists plugin names that must appear earlier. Names absent from
	// the activation list are ignored.
	After []string `json:"after,omitempty"`
	// Options is passed through to the adapter unchanged.
	Options map[string]any `json:"options,omitempty"`
}
