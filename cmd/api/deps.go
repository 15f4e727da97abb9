package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderlifecycle/internal/aws"
	"github.com/imrishuroy/go-orderlifecycle/internal/catalog"
	"github.com/imrishuroy/go-orderlifecycle/internal/config"
	"github.com/imrishuroy/go-orderlifecycle/internal/logging"
	"github.com/imrishuroy/go-orderlifecycle/internal/notify"
	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
	"github.com/imrishuroy/go-orderlifecycle/internal/orders/mysqlstore"
)

type dependencies struct {
	cfg     config.Config
	log     *logrus.Logger
	service *orders.Service
	db      *sqlx.DB
}

func (d *dependencies) close() {
	if d.db != nil {
		_ = d.db.Close()
	}
}

// build wires the store, catalog, notifier and metrics selected by the config.
func build(ctx context.Context) (*dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	deps := &dependencies{cfg: cfg, log: log}

	var clients *aws.AWSClients
	if cfg.StoreDriver == config.DriverDynamo || cfg.NotificationQueueURL != "" || cfg.MetricsEnabled {
		clients, err = aws.NewAWSClients(ctx, aws.Settings{
			Region:           cfg.AWSRegion,
			EndpointOverride: cfg.AWSEndpointOverride,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init aws clients: %w", err)
		}
	}

	var store orders.Store
	switch cfg.StoreDriver {
	case config.DriverDynamo:
		store = orders.NewDynamoStore(clients.DynamoDB, orders.DynamoTables{
			Orders:    cfg.OrdersTable,
			Returns:   cfg.ReturnsTable,
			UserIndex: cfg.UserIndex,
		})
	case config.DriverMySQL:
		db, err := mysqlstore.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		deps.db = db
		store = mysqlstore.New(db)
	default:
		log.Warn("using in-memory store; data is lost on exit")
		store = orders.NewMemoryStore()
	}

	var notifier orders.Notifier = notify.LogSink{Log: log}
	if cfg.NotificationQueueURL != "" {
		notifier = notify.NewQueueSink(aws.NewPublisher(clients.SQS, cfg.NotificationQueueURL), log)
	}

	var metrics orders.Metrics
	if cfg.MetricsEnabled {
		metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}

	svc, err := orders.NewService(orders.ServiceDeps{
		Store:              store,
		Catalog:            catalog.NewHTTPClient(cfg.CatalogBaseURL, cfg.CatalogTimeout, nil),
		Notifier:           notifier,
		Metrics:            metrics,
		Logger:             log,
		CatalogConcurrency: cfg.CatalogConcurrency,
		CatalogTimeout:     cfg.CatalogTimeout,
		NotifyTimeout:      cfg.NotifyTimeout,
	})
	if err != nil {
		deps.close()
		return nil, err
	}
	deps.service = svc

	log.WithFields(logrus.Fields{
		"store":   cfg.StoreDriver,
		"catalog": cfg.CatalogBaseURL,
		"queue":   cfg.NotificationQueueURL != "",
		"metrics": cfg.MetricsEnabled,
	}).Info("order service ready")
	return deps, nil
}
