package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/weightpack/internal/api"
	"github.com/samcharles93/weightpack/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		maxBody     int64
		storeLimit  int
		parallel    bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the compression REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-body",
				Usage:       "maximum request body in bytes",
				Value:       64 << 20,
				Destination: &maxBody,
			},
			&cli.IntFlag{
				Name:        "store-limit",
				Usage:       "compression results kept for GET /v1/compress/:id",
				Value:       64,
				Destination: &storeLimit,
			},
			&cli.BoolFlag{
				Name:        "parallel-engines",
				Usage:       "run the engines of each fractal on separate goroutines",
				Destination: &parallel,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, fileConfig, &addr)
			log := logger.FromContext(ctx)

			server := api.NewServer(api.Options{
				Logger:          log,
				MaxBodyBytes:    maxBody,
				StoreLimit:      storeLimit,
				ParallelEngines: parallel,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
