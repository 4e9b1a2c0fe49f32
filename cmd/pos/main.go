package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/picosretail/pos-terminal/internal/api"
	"github.com/picosretail/pos-terminal/internal/cart"
	"github.com/picosretail/pos-terminal/internal/checkout"
	"github.com/picosretail/pos-terminal/internal/session"
	"github.com/picosretail/pos-terminal/internal/state"
	"github.com/picosretail/pos-terminal/internal/transport"
	"github.com/picosretail/pos-terminal/pkg/config"
	"github.com/picosretail/pos-terminal/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "pos"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "pos",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	stateStore, err := state.Open(ctx, cfg.State)
	if err != nil {
		logg.Error(ctx, "failed to open local state", err)
		os.Exit(1)
	}

	sessionStore, err := session.NewPersistentStore(ctx, stateStore)
	if err != nil {
		logg.Error(ctx, "failed to restore session", err)
		os.Exit(1)
	}

	term := newTerminal(cfg, logg, stateStore, sessionStore)

	client := transport.New(cfg.API, sessionStore, stateStore, logg,
		transport.WithSessionExpiredHook(term.onSessionExpired))
	term.bind(client)

	validator := session.NewValidator(sessionStore, client, logg, cfg.Session)
	validator.Start(ctx)

	if err := term.restoreCart(ctx); err != nil {
		logg.Warn(ctx, "could not restore saved cart")
	}

	runErr := term.run(ctx)

	validator.Stop()
	if err := multierr.Append(runErr, stateStore.Close()); err != nil {
		logg.Error(ctx, "terminal shut down with errors", err)
		os.Exit(1)
	}
}

func newTerminal(cfg *config.Config, logg *logger.Logger, st *state.Store, sess session.Store) *terminal {
	taxRate := cfg.Cart.TaxRateDecimal()
	return &terminal{
		cfg:     cfg,
		logg:    logg,
		state:   st,
		session: sess,
		cart:    cart.New(taxRate),
		builder: checkout.NewBuilder(taxRate),
	}
}

// bind wires the API groups once the transport client exists.
func (t *terminal) bind(client *transport.Client) {
	t.auth = api.NewAuth(client)
	t.products = api.NewProducts(client)
	t.sales = api.NewSales(client)
	t.cash = api.NewCash(client, t.state)
	t.customers = api.NewCustomers(client)
	t.reports = api.NewReports(client)
	t.admin = api.NewAdmin(client)
}
