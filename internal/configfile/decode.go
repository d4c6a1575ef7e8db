package configfile

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/unibuild/pkg/builder"
)

var validate = validator.New()

// decode maps a parsed document onto the config schema, then validates it.
// Unknown keys are logged, never fatal, so configs written for newer versions
// still load.
func decode(document map[string]any) (*builder.Config, error) {
	cfg := &builder.Config{}
	metadata := &mapstructure.Metadata{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   cfg,
		Metadata: metadata,
		// boolToStructHook stays last. It maps a bare false to nil, and a
		// nil result must not feed into another hook.
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			removeConsoleHook,
			browserslistHook,
			proxyRuleHook,
			pluginRefHook,
			scalarToSliceHook,
			boolToStructHook,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}

	if err := decoder.Decode(document); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	for _, key := range metadata.Unused {
		log.Warn().Str("key", key).Msg("unknown config key ignored")
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
