package tui

import (
	"context"
	"errors"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/tracker"
)

const listenerID = "tui"

// Tracker is the part of the manager the dashboard reads.
type Tracker interface {
	AllProgress() map[string]*progress.Info
	History(id string) []*progress.Info
	Statistics() tracker.Statistics
	CleanupCompleted() int
	AddListener(id string, fn tracker.Listener) bool
	RemoveListener(id string) bool
}

// RateSampler reports the host receive rate.
type RateSampler interface {
	Sample(ctx context.Context) (float64, bool, error)
}

type options struct {
	refresh    time.Duration
	bufferSize int
	sampler    RateSampler
	errs       <-chan error
	log        tracker.Logger
	programOpt []tea.ProgramOption
}

// Option configures Run.
type Option func(*options)

// WithRefresh sets how often the dashboard polls the tracker.
func WithRefresh(d time.Duration) Option {
	return func(o *options) { o.refresh = d }
}

// WithBufferSize sets the event queue between the tracker and the program.
func WithBufferSize(n int) Option {
	return func(o *options) { o.bufferSize = n }
}

// WithSampler shows the host receive rate in the header.
func WithSampler(s RateSampler) Option {
	return func(o *options) { o.sampler = s }
}

// WithErrors shows every error received on errs. Closing errs reports that
// all inputs were consumed.
func WithErrors(errs <-chan error) Option {
	return func(o *options) { o.errs = errs }
}

// WithLogger sets the logger used by the event dispatcher.
func WithLogger(l tracker.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithProgramOptions passes options through to bubbletea.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(o *options) { o.programOpt = append(o.programOpt, opts...) }
}

// Run starts the dashboard and blocks until the user quits or ctx is done.
func Run(ctx context.Context, t Tracker, opts ...Option) error {
	o := options{
		refresh:    500 * time.Millisecond,
		bufferSize: 256,
		programOpt: []tea.ProgramOption{tea.WithAltScreen()},
	}

	for _, opt := range opts {
		opt(&o)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(newTrackerActions(runCtx, t, o.sampler, o.log), o.refresh)
	p := tea.NewProgram(m, append(o.programOpt, tea.WithContext(runCtx))...)

	dispatcher := tracker.NewDispatcher(listenerID, o.bufferSize, func(ev tracker.Event) error {
		p.Send(eventMsg(ev))
		return nil
	}, o.log)
	dispatcher.Start(runCtx)
	defer dispatcher.Stop()

	t.AddListener(listenerID, dispatcher.Listener())
	defer t.RemoveListener(listenerID)

	if o.errs != nil {
		go forwardErrors(runCtx, p, o.errs)
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}

	return err
}

func forwardErrors(ctx context.Context, p *tea.Program, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				p.Send(inputsDoneMsg{})
				return
			}

			if err != nil {
				p.Send(downloadError{err})
			}
		}
	}
}

type trackerActions struct {
	GetAll   func() []*progress.Info
	History  func(id string) []*progress.Info
	Stats    func() tracker.Statistics
	Cleanup  func() int
	HostRate func() (float64, bool)
}

func newTrackerActions(ctx context.Context, t Tracker, sampler RateSampler, log tracker.Logger) trackerActions {
	hostRate := func() (float64, bool) { return 0, false }
	if sampler != nil {
		hostRate = func() (float64, bool) {
			rate, ok, err := sampler.Sample(ctx)
			if err != nil {
				if log != nil {
					log.Debugf("host rate unavailable: %v", err)
				}

				return 0, false
			}

			return rate, ok
		}
	}

	return trackerActions{
		GetAll:   func() []*progress.Info { return sortedDownloads(t.AllProgress()) },
		History:  t.History,
		Stats:    t.Statistics,
		Cleanup:  t.CleanupCompleted,
		HostRate: hostRate,
	}
}

func sortedDownloads(all map[string]*progress.Info) []*progress.Info {
	downloads := make([]*progress.Info, 0, len(all))
	for _, info := range all {
		downloads = append(downloads, info)
	}

	sort.Slice(downloads, func(i, j int) bool {
		return downloads[i].RequestID < downloads[j].RequestID
	})

	return downloads
}
