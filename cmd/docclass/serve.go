package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/joseph-ayodele/docclass/internal/async"
	"github.com/joseph-ayodele/docclass/internal/ingest"
	"github.com/joseph-ayodele/docclass/internal/modelstore"
	"github.com/joseph-ayodele/docclass/internal/server"
	"github.com/joseph-ayodele/docclass/internal/training"
)

const shutdownGrace = 30 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC document service",
	Long: `Serve loads the saved model and starts the gRPC service
docclass.v1.DocumentService (Classify, Extract, GetResult) plus the standard
health service.

Optional background work, all driven by the config file:
  inbox.dir          watch a directory and process new PDFs as they land
  retrain.enabled    refit from training.corpus_dir on retrain.schedule (cron)
  retrain.reload     hot-swap the model when the fs store's artifacts change

Examples:
  docclass serve
  docclass serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		addr := cfg.Server.GRPCAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		svc := server.NewDocumentService(rt.proc, rt.results, cfg.Server, logger)
		grpcServer, hs := server.NewGRPCServer(svc, cfg.Server.MaxDocumentBytes, logger)

		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("grpc serving", "addr", lis.Addr().String())
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			hs.Shutdown()
			grpcServer.GracefulStop()
			return nil
		})

		if cfg.Inbox.Dir != "" {
			g.Go(func() error { return runInbox(gctx, rt) })
		}
		if cfg.Retrain.Reload {
			if fs, ok := rt.store.(*modelstore.FSStore); ok {
				rl := async.NewReloader(fs.Dir(), rt.store, rt.holder, cfg.Inbox.Debounce, logger)
				g.Go(func() error { return rl.Run(gctx) })
			} else {
				logger.Info("model hot-reload needs the fs store, skipping", "store", cfg.Store.Kind)
			}
		}
		if cfg.Retrain.Enabled {
			rtr, err := async.NewRetrainer(
				cfg.Retrain.Schedule,
				cfg.Training.CorpusDir,
				training.NewLoader(rt.ex, logger),
				classifierConfig(),
				rt.store,
				rt.holder,
				logger,
			)
			if err != nil {
				return err
			}
			g.Go(func() error { return rtr.Run(gctx) })
		}

		return g.Wait()
	},
}

// runInbox feeds existing and newly arriving PDFs to a worker queue until ctx is done.
func runInbox(ctx context.Context, rt *runtime) error {
	q := async.NewProcessorQueue(rt.proc, logger,
		async.WithWorkers(cfg.Inbox.Workers),
		async.WithQueueSize(cfg.Inbox.Queue),
		async.WithProcessTimeout(cfg.Inbox.Timeout),
	)
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		q.Shutdown(sctx)
	}()

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Inbox.Dir},
		InitialScan: true,
		Debounce:    cfg.Inbox.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("watch inbox: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("inbox watcher error", "error", err)
		case p, ok := <-events:
			if !ok {
				return nil
			}
			if err := rt.proc.MarkQueued(ctx, p); err != nil {
				logger.Warn("could not mark file queued", "path", p, "error", err)
			}
			if err := q.Enqueue(ctx, async.NewJob(p)); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("enqueue failed", "path", p, "error", err)
			}
		}
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "gRPC listen address")

	rootCmd.AddCommand(serveCmd)
}
