package builder

import (
	"github.com/wolfeidau/unibuild/pkg/builder/plugin"
)

// Well known plugin names. The JS side adapter maps each onto the real
// bundler plugin implementation.
const (
	PluginAssetsRetry      = "unibuild:assets-retry"
	PluginAssetManifest    = "unibuild:asset-manifest"
	PluginSvgr             = "unibuild:svgr"
	PluginCheckSyntax      = "unibuild:check-syntax"
	PluginStyledComponents = "unibuild:styled-components"
	PluginProgress         = "unibuild:progress"
	PluginTypeCheck        = "unibuild:type-check"
)

// activePlugins maps feature flags onto plugin descriptors. Each enabled flag
// contributes exactly one descriptor, disabled flags contribute none. User
// declared plugins are appended afterwards in declaration order.
func activePlugins(cfg *Config, browserslist []string) []plugin.Descriptor {
	var descriptors []plugin.Descriptor

	if cfg.Dev.ProgressBar {
		descriptors = append(descriptors, plugin.Descriptor{
			Name:  PluginProgress,
			Order: plugin.OrderPre,
		})
	}

	if retry := cfg.Output.AssetsRetry; retry != nil {
		options := map[string]any{}
		if retry.Max > 0 {
			options["max"] = retry.Max
		}
		if len(retry.Domain) > 0 {
			options["domain"] = retry.Domain
		}
		if retry.CrossOrigin {
			options["crossOrigin"] = true
		}
		if retry.Delay > 0 {
			options["delay"] = retry.Delay
		}

		descriptors = append(descriptors, plugin.Descriptor{
			Name:    PluginAssetsRetry,
			Order:   plugin.OrderPre,
			Options: options,
		})
	}

	if cfg.Output.SvgDefaultExport != "" {
		descriptors = append(descriptors, plugin.Descriptor{
			Name:    PluginSvgr,
			Options: map[string]any{"svgDefaultExport": cfg.Output.SvgDefaultExport},
		})
	}

	if sc := cfg.Tools.StyledComponents; sc != nil {
		options := map[string]any{
			"displayName": boolOr(sc.DisplayName, true),
		}
		if sc.SSR {
			options["ssr"] = true
		}
		if sc.Pure {
			options["pure"] = true
		}

		descriptors = append(descriptors, plugin.Descriptor{
			Name:    PluginStyledComponents,
			Options: options,
		})
	}

	if !cfg.Output.DisableTsChecker {
		descriptors = append(descriptors, plugin.Descriptor{
			Name:  PluginTypeCheck,
			Order: plugin.OrderPost,
		})
	}

	if check := cfg.Security.CheckSyntax; check != nil {
		targets := check.Targets
		if len(targets) == 0 {
			targets = browserslist
		}

		options := map[string]any{"targets": targets}
		if len(check.Exclude) > 0 {
			options["exclude"] = check.Exclude
		}

		descriptors = append(descriptors, plugin.Descriptor{
			Name:    PluginCheckSyntax,
			Order:   plugin.OrderPost,
			Options: options,
		})
	}

	if cfg.Output.EnableAssetManifest {
		descriptors = append(descriptors, plugin.Descriptor{
			Name:  PluginAssetManifest,
			Order: plugin.OrderPost,
		})
	}

	for _, ref := range cfg.Plugins {
		descriptors = append(descriptors, plugin.Descriptor{
			Name:    ref.Name,
			Options: ref.Options,
		})
	}

	return descriptors
}
