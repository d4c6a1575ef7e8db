package builder

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// browserslistRC is the conventional file name in the project root.
const browserslistRC = ".browserslistrc"

var defaultBrowserslists = map[Target][]string{
	TargetWeb:       {"chrome >= 87", "edge >= 88", "firefox >= 78", "safari >= 14"},
	TargetWebWorker: {"chrome >= 87", "edge >= 88", "firefox >= 78", "safari >= 14"},
	TargetNode:      {"node >= 14"},
}

// DefaultBrowserslist returns the built in queries for a target. Queries are
// opaque strings handed to the bundler, never evaluated here.
func DefaultBrowserslist(target Target) []string {
	return slices.Clone(defaultBrowserslists[target])
}

// ResolveBrowserslist resolves the effective query list for a target.
// Precedence: the config override, then a .browserslistrc in the project
// root, then the built in defaults. The rc file supports comments and
// [production] / [development] sections keyed by mode.
func ResolveBrowserslist(cwd string, mode Mode, target Target, override BrowserslistOverride) ([]string, error) {
	if queries, ok := override.ByTargets[target]; ok && len(queries) > 0 {
		return slices.Clone(queries), nil
	}

	if len(override.Queries) > 0 {
		return slices.Clone(override.Queries), nil
	}

	data, err := os.ReadFile(filepath.Join(cwd, browserslistRC))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultBrowserslist(target), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", browserslistRC, err)
	}

	sections := parseBrowserslistRC(data)

	if queries := sections[string(mode)]; len(queries) > 0 {
		return queries, nil
	}

	if queries := sections[""]; len(queries) > 0 {
		return queries, nil
	}

	return DefaultBrowserslist(target), nil
}

// parseBrowserslistRC splits an rc file into sections. Queries before the
// first [section] header land in the "" section.
func parseBrowserslistRC(data []byte) map[string][]string {
	sections := make(map[string][]string)
	section := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		sections[section] = append(sections[section], line)
	}

	return sections
}
