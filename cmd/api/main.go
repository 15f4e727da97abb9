package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/imrishuroy/go-orderlifecycle/internal/config"
	"github.com/imrishuroy/go-orderlifecycle/internal/handlers"
	"github.com/imrishuroy/go-orderlifecycle/internal/logging"
	"github.com/imrishuroy/go-orderlifecycle/internal/orders/mysqlstore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app := &cli.App{
		Name:  "orders-api",
		Usage: "order lifecycle and returns API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "lambda",
				Usage:  "run as an API Gateway proxy Lambda",
				Action: runLambda,
			},
			{
				Name:   "migrate",
				Usage:  "apply MySQL schema migrations",
				Action: migrateUp,
			},
		},
		// RUN_LOCAL=true keeps the old local-server shortcut without a subcommand.
		Action: func(c *cli.Context) error {
			if os.Getenv("RUN_LOCAL") == "true" {
				return serve(c)
			}
			return runLambda(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("orders-api exited")
	}
}

func setupRouter(deps *dependencies) *gin.Engine {
	if deps.cfg.LogFormat != "text" {
		gin.SetMode(gin.ReleaseMode)
	}
	return handlers.NewRouter(handlers.HandlerConfig{Service: deps.service, Logger: deps.log})
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := build(ctx)
	if err != nil {
		return err
	}
	defer deps.close()

	srv := &http.Server{
		Addr:              deps.cfg.ListenAddr,
		Handler:           setupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.log.WithField("addr", srv.Addr).Info("running local server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	deps.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	deps.service.Wait()
	return nil
}

func runLambda(c *cli.Context) error {
	deps, err := build(c.Context)
	if err != nil {
		return err
	}

	adapter := ginadapter.New(setupRouter(deps))

	handler := func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	}
	// Notifications still running when the environment freezes resume on the
	// next invocation; ones that outlive notify_timeout are counted as dropped.
	lambda.StartWithOptions(handler, lambda.WithEnableSIGTERM(func() {
		deps.service.Wait()
		deps.close()
	}))
	return nil
}

func migrateUp(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if cfg.MySQLDSN == "" {
		return errors.New("migrate: MYSQL_DSN is not set")
	}

	db, err := mysqlstore.Open(c.Context, cfg.MySQLDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mysqlstore.Migrate(db.DB); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
