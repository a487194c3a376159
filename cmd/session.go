package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NamanBalaji/dltrack/internal/config"
	trackerrors "github.com/NamanBalaji/dltrack/internal/errors"
	"github.com/NamanBalaji/dltrack/internal/logger"
	"github.com/NamanBalaji/dltrack/internal/metrics"
	"github.com/NamanBalaji/dltrack/internal/repository"
	"github.com/NamanBalaji/dltrack/internal/tracker"
	"github.com/NamanBalaji/dltrack/internal/ytdlp"
)

// session owns one manager and the listeners attached to it for the length
// of a command.
type session struct {
	cfg     *config.Config
	log     tracker.Logger
	manager *tracker.Manager

	repo    *repository.BboltRepository
	journal *repository.Journal

	server      *http.Server
	metricsAddr net.Addr

	dispatchers []*tracker.Dispatcher
}

func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	s := &session{
		cfg: cfg,
		log: logger.Default(),
	}

	s.manager = tracker.New(
		tracker.WithOptions(cfg.Tracker.Options()),
		tracker.WithLogger(s.log),
	)

	if cfg.Journal.Enabled {
		if err := s.openJournal(ctx); err != nil {
			s.close()
			return nil, err
		}
	}

	if cfg.Metrics.Enabled {
		if err := s.serveMetrics(ctx); err != nil {
			s.close()
			return nil, err
		}
	}

	return s, nil
}

func (s *session) openJournal(ctx context.Context) error {
	path := s.cfg.Journal.Path

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	repo, err := repository.NewBboltRepository(path)
	if err != nil {
		return trackerrors.NewStorageError(err, path)
	}

	s.repo = repo
	s.journal = repository.NewJournal(repo, s.log)
	if s.cfg.Dispatch.Async {
		s.manager.AddListener("journal-counter", s.journal.Counter())
	}
	s.attach(ctx, "journal", s.journal.Listener(), s.cfg.Dispatch.Async)

	return nil
}

func (s *session) serveMetrics(ctx context.Context) error {
	events := metrics.NewEventCounter()
	s.attach(ctx, "metrics", events.Listener(), s.cfg.Dispatch.Async)

	ln, err := net.Listen("tcp", s.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics: %w", err)
	}

	s.metricsAddr = ln.Addr()
	s.server = &http.Server{
		Handler:           metrics.Handler(metrics.NewRegistry(s.manager, events)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("metrics server stopped: %v", err)
		}
	}()

	s.log.Infof("serving metrics on %s", s.metricsAddr)

	return nil
}

// attach registers l with the manager, behind a dispatcher when async is set.
// Listeners that query the manager must be attached async.
func (s *session) attach(ctx context.Context, id string, l tracker.Listener, async bool) {
	if async {
		d := tracker.NewDispatcher(id, s.cfg.Dispatch.BufferSize, l, s.log)
		d.Start(ctx)
		s.dispatchers = append(s.dispatchers, d)
		l = d.Listener()
	}

	s.manager.AddListener(id, l)
}

// feed consumes every input concurrently. Downloads that yt-dlp reports as
// failed are sent to errs but do not fail the command; read errors do.
func (s *session) feed(ctx context.Context, inputs []input, errs chan<- error) error {
	feeder := ytdlp.NewFeeder(s.manager,
		ytdlp.WithRateLimit(s.cfg.Feeder.MaxUpdatesPerSecond),
		ytdlp.WithFeederLogger(s.log),
	)

	report := func(err error) {
		if errs != nil {
			errs <- err
		}
	}

	var g errgroup.Group

	for _, in := range inputs {
		g.Go(func() error {
			rc, err := in.open()
			if err != nil {
				report(err)
				return err
			}
			defer rc.Close()

			id, err := feeder.Consume(ctx, in.requestID, rc)
			switch {
			case err == nil:
				s.log.Debugf("finished reading %s as %s", in.name, id)
				return nil
			case trackerrors.IsCategory(err, trackerrors.CategoryContext):
				return nil
			case errors.Is(err, ytdlp.ErrDownloadFailed):
				report(fmt.Errorf("%s: %w", in.name, err))
				return nil
			default:
				err = fmt.Errorf("%s: %w", in.name, err)
				report(err)

				return err
			}
		})
	}

	return g.Wait()
}

// stopListeners delivers whatever the dispatchers still hold.
func (s *session) stopListeners() {
	for _, d := range s.dispatchers {
		d.Stop()
		if n := d.Dropped(); n > 0 {
			s.log.Warnf("dropped %d progress events", n)
		}
	}

	s.dispatchers = nil
}

func (s *session) close() {
	s.stopListeners()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Warnf("failed to stop metrics server: %v", err)
		}
	}

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.log.Warnf("failed to close journal: %v", err)
		}
	}

	s.manager.Close()
}
