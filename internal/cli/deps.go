package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/Textflow/internal/api"
	"github.com/shaiso/Textflow/internal/config"
	"github.com/shaiso/Textflow/internal/mq"
	"github.com/shaiso/Textflow/internal/orchestrator"
	"github.com/shaiso/Textflow/internal/repo"
)

// deps — внешние подключения команды: хранилище отчётов и брокер.
type deps struct {
	reports   *repo.ReportRepo
	publisher *mq.Publisher
	closers   []func() error
}

// openDeps подключает хранилище и брокер, если они запрошены.
func openDeps(ctx context.Context, s *config.Settings, logger *slog.Logger, withStore, withEvents bool) (*deps, error) {
	d := &deps{}

	if withStore {
		pool, err := repo.NewPool(ctx, repo.PoolConfig{DSN: s.Store.DSN, MaxConns: s.Store.MaxConns})
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() error { pool.Close(); return nil })

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			d.Close()
			return nil, err
		}
		d.reports = repo.NewReportRepo(pool)
		logger.Debug("report store connected")
	}

	if withEvents {
		conn, err := connectMQ(ctx, s, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, conn.Close)
		d.publisher = mq.NewPublisher(conn, logger)
	}

	return d, nil
}

// connectMQ подключается к брокеру и объявляет топологию.
func connectMQ(ctx context.Context, s *config.Settings, logger *slog.Logger) (*mq.Connection, error) {
	conn, err := mq.NewConnection(mq.ConnectionConfig{
		URL:        s.MQ.URL,
		MaxBackoff: s.MQ.MaxBackoff,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	if err := mq.SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setup topology: %w", err)
	}
	logger.Debug("topology declared", "topology", mq.TopologyInfo())
	return conn, nil
}

// Store возвращает хранилище или nil.
func (d *deps) Store() orchestrator.ReportStore {
	if d.reports == nil {
		return nil
	}
	return d.reports
}

// RunStore возвращает хранилище для API или nil.
func (d *deps) RunStore() api.RunStore {
	if d.reports == nil {
		return nil
	}
	return d.reports
}

// Events возвращает публикацию событий или nil.
func (d *deps) Events() orchestrator.EventPublisher {
	if d.publisher == nil {
		return nil
	}
	return d.publisher
}

// Close закрывает подключения в обратном порядке.
func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
