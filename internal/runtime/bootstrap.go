package runtime

import (
	"context"
	"os"

	configpkg "github.com/mobifiliallp/mfuses/internal/runtime/config"
	loggingpkg "github.com/mobifiliallp/mfuses/internal/runtime/logging"
)

// NewServiceFromStore is the one-call bootstrap: it resolves the layered
// configuration from the store, builds a logger at the resolved level, and
// constructs the Service. The resolver warnings about deprecated
// configuration roots go to a bootstrap logger at the default level, since
// the final level is not known until resolution completes.
func NewServiceFromStore(ctx context.Context, store configpkg.Store, deps ServiceDependencies) (*Service, error) {
	bootLog := loggingpkg.NewBaseLogger(os.Stderr, loggingpkg.Settings{}, nil)

	conf, err := configpkg.Resolve(store, bootLog)
	if err != nil {
		return nil, err
	}

	log := loggingpkg.NewBaseLogger(os.Stderr, loggingpkg.Settings{Level: conf.Logger.Level}, loggingpkg.LogFields{
		"namespace": conf.Namespace,
	})

	return TryNewService(conf, log, ctx, deps)
}
