package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"stakelens/internal/api"
	"stakelens/internal/chain"
	"stakelens/internal/observability"
	"stakelens/internal/watcher"
)

func serveCmd(g *globals) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and refresh watched tokens on new heads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				g.cfg.ListenAddr = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, g)
			if err != nil {
				return err
			}
			resolver, err := a.resolver(g, g.cfg.AllocationTable)
			if err != nil {
				return err
			}
			st, cleanup, err := openStores(ctx, g)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := api.Options{
				Aggregator:  a.aggregator,
				Snapshots:   st.snapshots,
				Points:      st.points,
				Allocations: st.allocations,
				Logger:      g.log,
			}
			// A nil *Resolver must not become a non-nil interface.
			if resolver != nil {
				opts.Resolver = resolver
			}
			server, err := api.New(opts)
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			httpServer := &http.Server{
				Addr:              g.cfg.ListenAddr,
				Handler:           server.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			var w *watcher.Watcher
			if g.cfg.WSURL != "" && len(g.cfg.Tokens) > 0 {
				if w, err = newWatcher(ctx, g, a, st); err != nil {
					return err
				}
			} else {
				g.log.Info("watcher disabled (set STAKELENS_WS_URL and STAKELENS_TOKENS)")
			}

			grp, gctx := errgroup.WithContext(ctx)

			grp.Go(func() error {
				g.log.WithField("addr", httpServer.Addr).Info("http server listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			grp.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})

			if w != nil {
				grp.Go(func() error {
					if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}

			err = grp.Wait()
			g.log.Info("shutdown complete")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides STAKELENS_LISTEN_ADDR)")
	return cmd
}

// newWatcher connects the head subscription and builds the watcher. The
// subscription closes when ctx ends.
func newWatcher(ctx context.Context, g *globals, a *app, st *stores) (*watcher.Watcher, error) {
	if err := g.cfg.ValidateWatcher(); err != nil {
		return nil, err
	}
	tokens, err := g.cfg.TokenAddresses()
	if err != nil {
		return nil, err
	}

	wsCfg := chain.DefaultWSConfig()
	wsCfg.OnReconnect = observability.RecordWSReconnect
	ws, err := chain.NewWSClient(ctx, g.cfg.WSURL, &wsCfg, g.log)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	return watcher.New(watcher.Options{
		Heads:       ws,
		Aggregator:  a.aggregator,
		Tokens:      tokens,
		Every:       g.cfg.RefreshEvery,
		Concurrency: g.cfg.Concurrency,
		Snapshots:   st.snapshots,
		Points:      st.points,
		Progress:    st.progress,
		Logger:      g.log,
	})
}
