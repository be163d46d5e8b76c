// Command docqueue runs the admin API over Postgres-backed queues, cleans acked
// messages periodically and logs everything that lands in the dead-letter queue.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/rise-and-shine/docqueue/adminapi"
	"github.com/rise-and-shine/docqueue/cfgloader"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/docqueue/pgstore"
	"github.com/rise-and-shine/docqueue/docqueue/worker"
	"github.com/rise-and-shine/docqueue/http/server"
	"github.com/rise-and-shine/docqueue/http/server/middleware"
	"github.com/rise-and-shine/docqueue/meta"
	"github.com/rise-and-shine/docqueue/observability/logger"
	"github.com/rise-and-shine/docqueue/observability/tracing"
	"github.com/rise-and-shine/docqueue/pg"
	"github.com/uptrace/bun"
)

const dbPingAttempts = 10

func main() {
	cfg := cfgloader.MustLoad[Config]()

	meta.SetServiceInfo(cfg.Service.Name, cfg.Service.Version)
	logger.SetGlobal(cfg.Logger)
	defer logger.Sync() //nolint:errcheck // nothing to do on a failed flush at exit

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, cfg)
	if err != nil {
		logger.Fatalx(err)
	}
}

func run(ctx context.Context, cfg Config) error {
	log := logger.Named("main")

	shutdownTracer, err := tracing.InitGlobalTracer(cfg.Tracing)
	if err != nil {
		return errx.Wrap(err)
	}
	defer func() {
		if err := shutdownTracer(); err != nil {
			log.Errorx(err)
		}
	}()

	db, err := pg.NewBunDB(cfg.Postgres)
	if err != nil {
		return errx.Wrap(err)
	}
	defer db.Close()

	err = pg.Ping(ctx, db, dbPingAttempts)
	if err != nil {
		return errx.Wrap(err)
	}

	q, dlq, err := openQueues(ctx, db, cfg.Queue)
	if err != nil {
		return errx.Wrap(err)
	}

	srv := newHTTPServer(cfg.HTTP, adminapi.NewRegistry(q, dlq))
	srvErr := make(chan error, 1)
	go func() {
		log.Infof("[main]: admin api listening on %s", cfg.HTTP.Address())
		srvErr <- srv.Start()
	}()

	if cfg.Queue.CleanInterval > 0 {
		go runCleaner(ctx, cfg.Queue.CleanInterval, q, dlq)
	}

	var deadLetters *worker.Processor
	if cfg.Queue.DeadLetterParallelism > 0 {
		deadLetters, err = startDeadLetterLogger(ctx, dlq, cfg.Queue)
		if err != nil {
			return errx.Wrap(err)
		}
	}

	select {
	case <-ctx.Done():
		log.Info("[main]: shutdown signal received")
	case err = <-srvErr:
		if err != nil {
			log.Errorx(errx.Wrap(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Queue.ShutdownTimeout)
	defer cancel()

	var errs []error
	errs = append(errs, srv.Stop())
	if deadLetters != nil {
		errs = append(errs, deadLetters.Stop(shutdownCtx))
	}

	err = errors.Join(errs...)
	if err != nil {
		return errx.Wrap(err)
	}
	return nil
}

func openQueues(ctx context.Context, db *bun.DB, cfg QueueConfig) (*docqueue.Queue, *docqueue.Queue, error) {
	dlqStore, err := pgstore.New(db, cfg.DeadLetterName, pgstore.WithSchema(cfg.Schema))
	if err != nil {
		return nil, nil, errx.Wrap(err)
	}
	dlq, err := docqueue.New(dlqStore,
		docqueue.WithName(cfg.DeadLetterName),
		docqueue.WithDefaultVisibility(cfg.Visibility),
	)
	if err != nil {
		return nil, nil, errx.Wrap(err)
	}

	store, err := pgstore.New(db, cfg.Name, pgstore.WithSchema(cfg.Schema))
	if err != nil {
		return nil, nil, errx.Wrap(err)
	}
	q, err := docqueue.New(store,
		docqueue.WithName(cfg.Name),
		docqueue.WithDefaultVisibility(cfg.Visibility),
		docqueue.WithDefaultDelay(cfg.Delay),
		docqueue.WithMaxRetries(cfg.MaxRetries),
		docqueue.WithDeadLetter(dlq),
	)
	if err != nil {
		return nil, nil, errx.Wrap(err)
	}

	// both queues share one table
	err = q.CreateIndexes(ctx)
	if err != nil {
		return nil, nil, errx.Wrap(err)
	}

	return q, dlq, nil
}

func newHTTPServer(cfg server.Config, registry *adminapi.Registry) *server.HTTPServer {
	log := logger.Named("adminapi")

	srv := server.NewHTTPServer(cfg, []server.Middleware{
		middleware.NewRecoveryMW(log),
		middleware.NewTracingMW(),
		middleware.NewTimeoutMW(cfg.HandleTimeout),
		middleware.NewLoggerMW(log),
		middleware.NewErrorHandlerMW(cfg.HideErrorDetails),
	})
	srv.RegisterRouter(func(r fiber.Router) {
		adminapi.Routes(registry)(r.Group(cfg.BasePath))
	})

	return srv
}

func runCleaner(ctx context.Context, interval time.Duration, queues ...*docqueue.Queue) {
	log := logger.Named("cleaner")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, q := range queues {
				n, err := q.Clean(ctx)
				if err != nil {
					log.Errorx(errx.Wrap(err))
					continue
				}
				if n > 0 {
					log.With("queue", q.Name(), "removed", n).Info("[cleaner]: removed done messages")
				}
			}
		}
	}
}

func startDeadLetterLogger(ctx context.Context, dlq *docqueue.Queue, cfg QueueConfig) (*worker.Processor, error) {
	log := logger.Named("dead_letter")

	p := worker.New(dlq, worker.WithPollInterval(cfg.PollInterval))
	p.Subscribe(worker.NewLogObserver(log))

	err := p.Process(ctx, cfg.DeadLetterParallelism, func(ctx context.Context, msg *docqueue.Message) error {
		var envelope docqueue.Message
		err := msg.Decode(&envelope)
		if err != nil {
			return errx.Wrap(err)
		}

		log.WithContext(ctx).With(
			"original_id", envelope.ID,
			"original_tries", envelope.Tries,
			"payload", string(envelope.Payload),
		).Error("[dead_letter]: message exhausted its retry budget")

		return nil
	})
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return p, nil
}
