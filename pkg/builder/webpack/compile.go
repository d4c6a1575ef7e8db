package webpack

import (
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/unibuild/pkg/builder"
	"github.com/wolfeidau/unibuild/pkg/builder/bundler"
)

// Compile lowers the normalized config and applies the user's raw config
// fragments. The result is the final artifact written for the adapter.
func Compile(n *builder.Normalized) (map[string]any, error) {
	cfg, err := Lower(n)
	if err != nil {
		return nil, err
	}

	out, err := bundler.ToMap(cfg)
	if err != nil {
		return nil, err
	}

	if len(n.Tools.Rspack) > 0 {
		log.Warn().Msg("tools.rspack has no effect on webpack builds")
	}

	if n.Mode == builder.ModeDevelopment && len(n.Tools.DevServer) > 0 {
		out = bundler.Merge(out, map[string]any{"devServer": n.Tools.DevServer})
	}

	if len(n.Tools.Webpack) > 0 {
		out = bundler.Merge(out, n.Tools.Webpack)
	}

	return out, nil
}
