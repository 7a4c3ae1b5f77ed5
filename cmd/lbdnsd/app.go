package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"go.uber.org/multierr"

	"github.com/haukened/lbdns/internal/dns/common/clock"
	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/config"
	"github.com/haukened/lbdns/internal/dns/domain"
	"github.com/haukened/lbdns/internal/dns/gateways/admin"
	"github.com/haukened/lbdns/internal/dns/gateways/geoip"
	"github.com/haukened/lbdns/internal/dns/gateways/transport"
	"github.com/haukened/lbdns/internal/dns/gateways/wire"
	"github.com/haukened/lbdns/internal/dns/repos/loadfile"
	"github.com/haukened/lbdns/internal/dns/repos/zone"
	"github.com/haukened/lbdns/internal/dns/repos/zonecache"
	"github.com/haukened/lbdns/internal/dns/services/balancer"
	"github.com/haukened/lbdns/internal/dns/services/responder"
)

// Application holds all the components of the DNS server
type Application struct {
	config     *config.AppConfig
	logger     log.Logger
	balancer   *balancer.Balancer
	zones      *zonecache.ZoneCache
	responder  *responder.Responder
	transports []transport.ServerTransport
	admin      *admin.Server
	closers    []io.Closer
}

// policyPicker chooses among configured policies; replaced in tests.
var policyPicker = rand.IntN

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig, logger log.Logger) (*Application, error) {
	app := &Application{config: cfg, logger: logger}

	pool, err := domain.NewBackendPool(cfg.Balancer.Backends)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend pool: %w", err)
	}

	kind, err := balancer.PickPolicy(cfg.Balancer.Policy, policyPicker)
	if err != nil {
		return nil, fmt.Errorf("failed to choose policy: %w", err)
	}

	popts := balancer.PolicyOptions{Reference: cfg.Geo.Reference}
	switch kind {
	case domain.PolicyGeo:
		locator, closer, err := buildLocator(cfg.Geo, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build geo lookup: %w", err)
		}
		if closer != nil {
			app.closers = append(app.closers, closer)
		}
		popts.Locator = locator
	case domain.PolicyLoad:
		popts.Reporter = loadfile.New(cfg.Load.File, logger)
	}
	policy, err := balancer.NewPolicy(kind, popts)
	if err != nil {
		return nil, app.abort(fmt.Errorf("failed to build policy: %w", err))
	}

	builder, err := zone.NewBuilder(cfg.ZoneParams())
	if err != nil {
		return nil, app.abort(fmt.Errorf("failed to build zone: %w", err))
	}

	app.zones = zonecache.New()
	app.balancer, err = balancer.New(balancer.Options{
		Pool:    pool,
		Policy:  policy,
		Builder: builder,
		Store:   app.zones,
		Logger:  logger,
		Clock:   clock.RealClock{},
		Timeout: cfg.Balancer.RefreshTimeout,
	})
	if err != nil {
		return nil, app.abort(fmt.Errorf("failed to build balancer: %w", err))
	}

	app.responder = responder.New(responder.Options{Zones: app.zones, Logger: logger})

	codec := wire.NewCodec(logger)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	for _, tt := range enabledTransports(cfg.Server) {
		t, err := transport.NewTransport(tt, transport.Options{
			Addr:        addr,
			Codec:       codec,
			Refresher:   app.balancer,
			Logger:      logger,
			Workers:     cfg.Server.Workers,
			ReadTimeout: cfg.Server.ReadTimeout,
		})
		if err != nil {
			return nil, app.abort(fmt.Errorf("failed to build %s transport: %w", tt, err))
		}
		app.transports = append(app.transports, t)
	}

	if cfg.Metrics.Enabled {
		app.admin = admin.New(fmt.Sprintf(":%d", cfg.Metrics.Port), app.balancer, logger)
	}

	logger.Info(map[string]any{
		"policy":     kind.String(),
		"backends":   pool.Len(),
		"apex":       builder.Apex(),
		"transports": len(app.transports),
	}, "Application built")
	return app, nil
}

// abort releases resources acquired so far and returns err.
func (app *Application) abort(err error) error {
	for _, c := range app.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func enabledTransports(s config.ServerConfig) []transport.TransportType {
	var out []transport.TransportType
	if s.UDP {
		out = append(out, transport.TransportUDP)
	}
	if s.TCP {
		out = append(out, transport.TransportTCP)
	}
	return out
}

// buildLocator returns the configured geo lookup, memoised when a cache size
// is set, and the closer of any database it opened.
func buildLocator(cfg config.GeoConfig, logger log.Logger) (geoip.Locator, io.Closer, error) {
	var (
		base   geoip.Locator
		closer io.Closer
	)
	switch cfg.Provider {
	case config.GeoProviderIPStack:
		s, err := geoip.NewIPStack(geoip.IPStackOptions{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.URL,
			Timeout: cfg.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err
		}
		base = s
	case config.GeoProviderMaxMind:
		m, err := geoip.OpenMaxMind(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		base, closer = m, m
	default:
		return nil, nil, fmt.Errorf("geo provider %q cannot serve the geo policy", cfg.Provider)
	}

	cached, err := geoip.NewCached(base, cfg.CacheSize)
	if err != nil {
		if closer != nil {
			err = multierr.Append(err, closer.Close())
		}
		return nil, nil, err
	}
	return cached, closer, nil
}

// Run performs the initial selection, starts every listener and blocks until
// ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if err := app.balancer.Start(ctx); err != nil {
		return multierr.Append(err, app.Stop())
	}
	app.logger.Info(map[string]any{
		"apex":    app.zones.Current().Apex(),
		"records": app.zones.Count(),
	}, "Zone published")

	for _, t := range app.transports {
		if err := t.Start(ctx, app.responder); err != nil {
			return multierr.Append(fmt.Errorf("failed to start transport: %w", err), app.Stop())
		}
		app.logger.Info(map[string]any{"address": t.Address()}, "DNS server started")
	}

	if app.admin != nil {
		if err := app.admin.Start(ctx); err != nil {
			return multierr.Append(fmt.Errorf("failed to start admin server: %w", err), app.Stop())
		}
	}

	<-ctx.Done()
	app.logger.Info(nil, "Shutdown initiated")
	return app.Stop()
}

// Stop closes every listener and releases resources. It is safe to call
// more than once.
func (app *Application) Stop() error {
	var err error
	for _, t := range app.transports {
		err = multierr.Append(err, t.Stop())
	}
	if app.admin != nil {
		err = multierr.Append(err, app.admin.Stop())
	}
	for _, c := range app.closers {
		err = multierr.Append(err, c.Close())
	}
	app.closers = nil
	return err
}
