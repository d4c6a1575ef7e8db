package builder

const (
	// DefaultEntryName is used when source.entry is empty.
	DefaultEntryName = "index"
	// DefaultEntryFile is the conventional main entry.
	DefaultEntryFile = "src/index.ts"

	// DefaultDataURILimit is the asset inline threshold in bytes.
	DefaultDataURILimit = 10000

	// DefaultDevPort is the dev server port.
	DefaultDevPort = 8080
	// DefaultDevHost is the dev server bind address.
	DefaultDevHost = "localhost"

	// DefaultMountID is the root element id passed to HTML templates.
	DefaultMountID = "root"

	localIdentDev  = "[path][name]__[local]--[hash:base64:6]"
	localIdentProd = "[local]--[hash:base64:6]"

	devtoolDev  = "cheap-module-source-map"
	devtoolProd = "source-map"
)

// defaultDistPath fills unset output directory fields.
func defaultDistPath(d DistPathConfig) DistPathConfig {
	if d.Root == "" {
		d.Root = "dist"
	}
	if d.JS == "" {
		d.JS = "static/js"
	}
	if d.CSS == "" {
		d.CSS = "static/css"
	}
	if d.HTML == "" {
		d.HTML = "html"
	}
	if d.Media == "" {
		d.Media = "static/media"
	}
	return d
}

// defaultLocalIdentName returns the CSS modules class pattern for the mode,
// readable in development and short in production.
func defaultLocalIdentName(mode Mode) string {
	return cond(mode == ModeDevelopment, localIdentDev, localIdentProd)
}

// defaultDevtool returns the JS source map style for the mode.
func defaultDevtool(mode Mode) string {
	return cond(mode == ModeDevelopment, devtoolDev, devtoolProd)
}

// boolOr dereferences an optional bool, falling back to def when unset.
func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// intOr dereferences an optional int, falling back to def when unset.
func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
