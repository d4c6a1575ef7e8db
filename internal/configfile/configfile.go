// Package configfile loads the declarative build configuration consumed by
// the CLI. Sources are local files (yaml, toml or json) or http(s) URLs.
// Whatever the format, the raw document decodes through the same map based
// pipeline so every source honours the same schema.
package configfile

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wolfeidau/unibuild/pkg/builder"
)

var (
	// ErrConfigNotFound indicates no config file exists in the project.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrUnsupportedFormat indicates an unrecognised config extension.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// candidates lists the discovered file names in preference order.
var candidates = []string{
	"unibuild.config.yaml",
	"unibuild.config.yml",
	"unibuild.config.toml",
	"unibuild.config.json",
}

// Info describes where a config came from.
type Info struct {
	// Source is the file path or URL the config was loaded from.
	Source string
	// Format is yaml, toml or json.
	Format string
	// Fingerprint identifies the raw config bytes in logs and artifacts.
	Fingerprint string
}

// Discover locates the config file in dir, trying each conventional name.
func Discover(dir string) (string, error) {
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrConfigNotFound, dir)
}

// Load reads and decodes a config from a local path or an http(s) URL. An
// empty source discovers the config in cwd. A missing discovered config is
// not an error, the zero config applies.
func Load(ctx context.Context, source, cwd string) (*builder.Config, *Info, error) {
	if source == "" {
		discovered, err := Discover(cwd)
		if errors.Is(err, ErrConfigNotFound) {
			log.Debug().Str("dir", cwd).Msg("no config file found, using defaults")
			return &builder.Config{}, &Info{Format: "none"}, nil
		}
		if err != nil {
			return nil, nil, err
		}
		source = discovered
	}

	var (
		raw []byte
		err error
	)

	if isRemote(source) {
		raw, err = fetchRemote(ctx, source)
	} else {
		if !filepath.IsAbs(source) {
			source = filepath.Join(cwd, source)
		}
		raw, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config %s: %w", source, err)
	}

	format, err := formatOf(source)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(raw, format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config %s: %w", source, err)
	}

	info := &Info{
		Source:      source,
		Format:      format,
		Fingerprint: Fingerprint(raw),
	}

	log.Debug().
		Str("source", info.Source).
		Str("format", info.Format).
		Str("fingerprint", info.Fingerprint).
		Msg("loaded config")

	return cfg, info, nil
}

// Parse decodes raw config bytes in the given format. JSON parses through
// the YAML path, YAML 1.2 being a superset.
func Parse(raw []byte, format string) (*builder.Config, error) {
	document := map[string]any{}

	switch format {
	case "yaml", "json":
		if err := yaml.Unmarshal(raw, &document); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(raw, &document); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return decode(document)
}

// Fingerprint returns a short stable identifier for raw config bytes.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return base58.Encode(sum[:8])
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// formatOf maps a source extension onto a parser format. Extensionless
// remote sources default to yaml.
func formatOf(source string) (string, error) {
	name := source
	if isRemote(source) {
		if u, err := url.Parse(source); err == nil {
			name = u.Path
		}
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	case ".json":
		return "json", nil
	case "":
		if isRemote(source) {
			return "yaml", nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, source)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, source)
	}
}
