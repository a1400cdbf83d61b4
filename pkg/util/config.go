package util

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ConfigToStruct populates a T from the free-form settings map of a config
// section, e.g. database.settings or cache.settings.
func ConfigToStruct[T any](rawConfig map[string]any) (*T, error) {
	config := new(T)
	if rawConfig == nil {
		return config, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           config,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(rawConfig); err != nil {
		return nil, fmt.Errorf("util.ConfigToStruct: %w", err)
	}
	return config, nil
}
