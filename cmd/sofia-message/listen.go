package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/arzzra/sofia_sip/pkg/journal"
	"github.com/arzzra/sofia_sip/pkg/message"
	"github.com/arzzra/sofia_sip/pkg/nua"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

func newListenCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Принимать MESSAGE и писать их в журнал до SIGINT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.listen(ctx, cmd, quiet)
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "не печатать принятые сообщения")
	return cmd
}

func (a *app) listen(ctx context.Context, cmd *cobra.Command, quiet bool) error {
	j, err := journal.Open(a.cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	g, ctx := errgroup.WithContext(ctx)

	if addr := a.cfg.Metrics.Listen; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			a.log.Info("метрики доступны", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("сервер метрик: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	out := cmd.OutOrStdout()
	g.Go(func() error {
		// реактор однопоточный: создание, шаги и уничтожение на одном потоке
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		var recordErr error
		onEvent := func(n *nua.Nua, ev nua.Event, status int, phrase string, h *nua.Handle, sip message.View, tags tag.List) {
			if ev != nua.EventIncomingMessage {
				a.log.Log(ctx, eventLevel(ev, status), "событие",
					slog.String("event", ev.String()),
					slog.Bool("incoming", ev.IsIncoming()),
					slog.Int("status", status),
					slog.String("phrase", phrase))
				return
			}
			entry := journal.EntryFromView(sip, time.Now())
			id, err := j.Record(ctx, entry)
			if err != nil {
				recordErr = err
				a.log.Error("не удалось записать сообщение", slog.Any("error", err))
				return
			}
			a.log.Info("принято сообщение",
				slog.Int64("id", id),
				slog.String("from", entry.From),
				slog.Int("bytes", len(entry.Payload)))
			if !quiet {
				fmt.Fprintf(out, "[%d] %s: %s\n", id, entry.From, entry.Payload)
			}
		}

		s, err := openSession(a.cfg, onEvent)
		if err != nil {
			return err
		}
		defer s.close()

		a.log.Info("агент слушает", slog.String("url", a.cfg.Agent.URL))
		for ctx.Err() == nil && recordErr == nil {
			s.root.Step(s.step)
		}
		return recordErr
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// eventLevel отказы на собственные запросы агента заметнее остальных событий
func eventLevel(ev nua.Event, status int) slog.Level {
	if ev.IsReply() && status >= 300 {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}
