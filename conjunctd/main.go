// Public domain.

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/soniakeys/exit"
	"go.uber.org/zap"

	"github.com/soniakeys/conjunct/internal/config"
	"github.com/soniakeys/conjunct/internal/graphstore"
	"github.com/soniakeys/conjunct/internal/server"
	"github.com/soniakeys/conjunct/internal/sgp4"
)

func main() {
	defer exit.Handler()

	dc := flag.String("c", os.Getenv("CONJUNCT_CONFIG"), "config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		exit.Log(err)
	}
	cfg := config.Default()
	if *dc != "" {
		var err error
		if cfg, err = config.Load(*dc); err != nil {
			exit.Log(err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		exit.Log(err)
	}
	if err := cfg.Validate(); err != nil {
		exit.Log(err)
	}

	var log *zap.Logger
	var err error
	if cfg.Log.Debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		exit.Log(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []server.Option
	if cfg.Store.URI != "" {
		st, err := graphstore.Open(ctx, cfg.Store, log)
		if err != nil {
			exit.Log(err)
		}
		defer st.Close(context.Background())
		opts = append(opts, server.WithStore(st))
	}
	if err := server.New(cfg, sgp4.Propagator{}, log, opts...).ListenAndServe(ctx); err != nil {
		exit.Log(err)
	}
}
