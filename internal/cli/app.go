package cli

import (
	"context"

	"github.com/prudhvinik1/kaucjaflow/internal/config"
	"github.com/prudhvinik1/kaucjaflow/internal/localstore"
	"github.com/prudhvinik1/kaucjaflow/internal/syncer"
)

// app bundles what a command needs to talk to the local log and the server.
type app struct {
	cfg    *config.POSConfig
	store  *localstore.Store
	remote *syncer.HTTPRemote
}

func (a *app) Close() error {
	return a.store.Close()
}

func loadConfig(opts *RootOptions) (*config.POSConfig, error) {
	cfg, err := config.LoadPOSConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openApp loads the config and opens the shop's local event log.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if cfg.ShopID == "" {
		return nil, NewExitError(ExitCommandError, "shop_id is not configured: run `kf-pos login` or set KF_SHOP_ID")
	}

	var storeOpts []localstore.Option
	if cfg.DeviceID != "" {
		storeOpts = append(storeOpts, localstore.WithDeviceID(cfg.DeviceID))
	}
	if opts.Now != nil {
		storeOpts = append(storeOpts, localstore.WithClock(opts.Now))
	}

	store, err := localstore.Open(ctx, cfg.DataDir, cfg.ShopID, storeOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open local store", err)
	}

	return &app{
		cfg:    cfg,
		store:  store,
		remote: syncer.NewHTTPRemote(cfg.ServerURL, cfg.Token, store.DeviceID(), cfg.HTTPTimeout),
	}, nil
}
