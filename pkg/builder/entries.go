package builder

import (
	"fmt"
	"maps"
	"slices"
)

// resolveEntries applies the default entry and prepends preEntry files to
// every entry. The returned map is a copy, the config is never mutated.
func resolveEntries(src SourceConfig) (map[string][]string, error) {
	entries := src.Entry
	if len(entries) == 0 {
		entries = map[string][]string{DefaultEntryName: {DefaultEntryFile}}
	}

	resolved := make(map[string][]string, len(entries))

	for _, name := range slices.Sorted(maps.Keys(entries)) {
		files := entries[name]
		if len(files) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyEntry, name)
		}

		combined := make([]string, 0, len(src.PreEntry)+len(files))
		combined = append(combined, src.PreEntry...)
		combined = append(combined, files...)
		resolved[name] = combined
	}

	return resolved, nil
}

// byEntry returns the per entry value when one exists for the entry name,
// otherwise the global value. Per entry values replace, they never merge.
func byEntry[T any](entry string, global T, perEntry map[string]T) T {
	if v, ok := perEntry[entry]; ok {
		return v
	}
	return global
}

// HTMLOptions is the fully resolved HTML configuration for a single entry.
type HTMLOptions struct {
	Title              string            `json:"title"`
	Meta               map[string]string `json:"meta"`
	Inject             string            `json:"inject"`
	Template           string            `json:"template,omitempty"`
	TemplateParameters map[string]any    `json:"templateParameters"`
	Favicon            string            `json:"favicon,omitempty"`
	AppIcon            string            `json:"appIcon,omitempty"`
	// Filename is relative to the HTML output directory.
	Filename string `json:"filename"`
}

// resolveHTML resolves the HTML options for every entry. ByEntries values
// replace their global counterpart for the matching entry only.
func resolveHTML(cfg HTMLConfig, entries map[string][]string, outputStructure string) map[string]HTMLOptions {
	mountID := cfg.MountID
	if mountID == "" {
		mountID = DefaultMountID
	}

	resolved := make(map[string]HTMLOptions, len(entries))

	for name := range entries {
		opts := HTMLOptions{
			Title:    byEntry(name, cfg.Title, cfg.TitleByEntries),
			Inject:   byEntry(name, cfg.Inject, cfg.InjectByEntries),
			Template: byEntry(name, cfg.Template, cfg.TemplateByEntries),
			Favicon:  byEntry(name, cfg.Favicon, cfg.FaviconByEntries),
			AppIcon:  cfg.AppIcon,
			Filename: cond(outputStructure == "flat", name+".html", name+"/index.html"),
		}

		if opts.Inject == "" {
			opts.Inject = "head"
		}

		opts.Meta = map[string]string{
			"charset":  "utf-8",
			"viewport": "width=device-width, initial-scale=1.0",
		}
		maps.Copy(opts.Meta, byEntry(name, cfg.Meta, cfg.MetaByEntries))

		opts.TemplateParameters = map[string]any{
			"mountId":   mountID,
			"entryName": name,
			"title":     opts.Title,
		}
		maps.Copy(opts.TemplateParameters, byEntry(name, cfg.TemplateParameters, cfg.TemplateParametersByEntries))

		resolved[name] = opts
	}

	return resolved
}
