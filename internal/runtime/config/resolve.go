package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	loggingpkg "github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// aliasRoot is one historically valid top-level configuration key. ReplacedBy
// is empty for the current name.
type aliasRoot struct {
	Name       string
	ReplacedBy string
}

// namespaceAliases lists the supported configuration roots, newest first.
// Resolution picks the first one present in the store.
var namespaceAliases = []aliasRoot{
	{Name: "mfuses"},
	{Name: "usMoleculer", ReplacedBy: "mfuses"},
	{Name: "mol-service", ReplacedBy: "mfuses"},
}

func defaultServiceSettings() map[string]any {
	return map[string]any{
		"namespace":      DefaultNamespace,
		"transporter":    DefaultTransporter,
		"requesttimeout": DefaultRequestTimeout.String(),
		"registry": map[string]any{
			"strategy": DefaultRegistryStrategy,
		},
	}
}

func defaultLoggerSettings() map[string]any {
	return map[string]any{"level": DefaultLogLevel}
}

func defaultWebAPISettings() map[string]any {
	return map[string]any{
		"port": DefaultWebAPIPort,
		"path": DefaultWebAPIPath,
	}
}

func defaultMetricsSettings() map[string]any {
	return map[string]any{
		"enabled": false,
		"port":    0,
	}
}

// Resolve reads the first configuration root present in the store, merges its
// sub-trees over the hard-coded defaults, and returns the finalized record.
// Absent keys are not an error; an empty or nil store yields the pure
// defaults. Using a deprecated root logs a warning naming its replacement.
func Resolve(store Store, log loggingpkg.ServiceLogger) (*Config, error) {
	if log == nil {
		log = loggingpkg.Nop()
	}

	service := defaultServiceSettings()
	logger := defaultLoggerSettings()
	webAPI := defaultWebAPISettings()
	metrics := defaultMetricsSettings()
	enableWebAPI := any(false)

	root := ""
	if store != nil {
		for _, alias := range namespaceAliases {
			if !store.Has(alias.Name) {
				continue
			}
			root = alias.Name
			if alias.ReplacedBy != "" {
				log.Warn("configuration root is deprecated", loggingpkg.LogFields{
					"alias":       alias.Name,
					"replacement": alias.ReplacedBy,
				})
			}
			break
		}
	}

	if root != "" {
		if sub := store.Sub(root + ".config"); sub != nil {
			service = Merge(service, sub)
		}
		if sub := store.Sub(root + ".logger"); sub != nil {
			logger = Merge(logger, sub)
		}
		if sub := store.Sub(root + ".webApiSettings"); sub != nil {
			webAPI = Merge(webAPI, sub)
		}
		if sub := store.Sub(root + ".metrics"); sub != nil {
			metrics = Merge(metrics, sub)
		}
		if store.Has(root + ".enableWebApi") {
			enableWebAPI = store.Get(root + ".enableWebApi")
		}
	}

	record := Merge(service, map[string]any{
		"logger":         logger,
		"enablewebapi":   enableWebAPI,
		"webapisettings": webAPI,
		"metrics":        metrics,
	})

	conf := &Config{}
	if err := decodeRecord(record, conf); err != nil {
		return nil, err
	}

	log.Trace("resolved broker configuration", loggingpkg.LogFields{
		"root":   root,
		"config": conf.String(),
	})
	return conf, nil
}

// decodeRecord turns the merged mapping into the typed record. Decoding is
// weakly typed so string booleans and numeric strings sourced from
// environment variables still land in the right fields.
func decodeRecord(record map[string]any, conf *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           conf,
	})
	if err != nil {
		return fmt.Errorf("mfuses: build configuration decoder: %w", err)
	}
	if err := decoder.Decode(record); err != nil {
		return fmt.Errorf("mfuses: decode configuration record: %w", err)
	}
	return nil
}
