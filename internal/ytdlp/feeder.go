package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/NamanBalaji/dltrack/internal/errors"
	"github.com/NamanBalaji/dltrack/internal/logger"
	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
	"github.com/NamanBalaji/dltrack/internal/tracker"
)

// ErrDownloadFailed is wrapped into the error Consume returns when yt-dlp
// printed an ERROR line.
var ErrDownloadFailed = errors.New("yt-dlp reported an error")

const maxLineSize = 1024 * 1024

// Tracker receives the snapshots a Feeder derives. *tracker.Manager
// satisfies it.
type Tracker interface {
	Register(id string, initial *progress.Info) error
	Update(id string, info *progress.Info)
}

// Feeder turns yt-dlp console output into tracker updates.
type Feeder struct {
	tracker   Tracker
	clock     tracker.Clock
	log       tracker.Logger
	perSecond float64
}

// FeederOption configures a Feeder.
type FeederOption func(*Feeder)

// WithRateLimit caps how many progress updates per second reach the tracker.
// Status changes, errors and the final update always go through.
func WithRateLimit(perSecond float64) FeederOption {
	return func(f *Feeder) {
		f.perSecond = perSecond
	}
}

func WithFeederClock(c tracker.Clock) FeederOption {
	return func(f *Feeder) {
		if c != nil {
			f.clock = c
		}
	}
}

func WithFeederLogger(l tracker.Logger) FeederOption {
	return func(f *Feeder) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFeeder creates a Feeder reporting to t.
func NewFeeder(t Tracker, opts ...FeederOption) *Feeder {
	f := &Feeder{
		tracker: t,
		clock:   tracker.SystemClock{},
		log:     logger.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Consume registers requestID (a random id when empty), then reads yt-dlp
// output from r until EOF, a read error, or ctx is done. It issues exactly
// one terminal update and returns the id it tracked under.
//
// A cancelled ctx does not interrupt a Read already in progress; callers
// reading from a pipe should close it on cancellation.
func (f *Feeder) Consume(ctx context.Context, requestID string, r io.Reader) (string, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	s := f.newSession(requestID)
	if err := f.tracker.Register(requestID, s.info.Clone()); err != nil {
		return requestID, err
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		scanner.Split(scanLines)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}

		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			s.finish(status.Cancelled, "")
			return requestID, errors.NewContextError(ctx.Err(), requestID)

		case line := <-lines:
			s.handleLine(line)

		case err := <-readErr:
			if err != nil {
				s.finish(status.Failed, err.Error())
				return requestID, errors.NewIOError(fmt.Errorf("failed to read yt-dlp output: %w", err), requestID)
			}

			if s.errMsg != "" {
				s.finish(status.Failed, s.errMsg)
				return requestID, errors.NewProcessError(fmt.Errorf("%w: %s", ErrDownloadFailed, s.errMsg), requestID)
			}

			s.finish(status.Completed, "")

			return requestID, nil
		}
	}
}

func (f *Feeder) newSession(id string) *session {
	now := f.clock.Now()

	s := &session{
		feeder: f,
		id:     id,
		start:  now,
		info: &progress.Info{
			RequestID:        id,
			Status:           status.FetchingInfo,
			CurrentOperation: "Fetching video info",
			UpdatedAt:        now,
		},
	}

	if f.perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(f.perSecond), 1)
	}

	return s
}

// postProcessors maps yt-dlp step tags to the operation shown while they run.
var postProcessors = map[string]string{
	"Merger":         "Merging formats",
	"ExtractAudio":   "Extracting audio",
	"VideoConvertor": "Converting video",
	"VideoRemuxer":   "Remuxing video",
	"EmbedSubtitle":  "Embedding subtitles",
	"EmbedThumbnail": "Embedding thumbnail",
	"Metadata":       "Adding metadata",
	"MoveFiles":      "Moving files",
}

// session is the running snapshot of one Consume call.
type session struct {
	feeder  *Feeder
	id      string
	start   time.Time
	info    *progress.Info
	limiter *rate.Limiter
	errMsg  string

	// hookElapsed is set once yt-dlp reports elapsed time itself.
	hookElapsed bool
}

func (s *session) handleLine(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	switch {
	case strings.HasPrefix(trimmed, "{"):
		s.handleHook(trimmed)
	case strings.HasPrefix(trimmed, "[download]"):
		s.handleDownloadLine(strings.TrimSpace(strings.TrimPrefix(trimmed, "[download]")))
	case strings.HasPrefix(trimmed, "ERROR:"):
		s.errMsg = strings.TrimSpace(strings.TrimPrefix(trimmed, "ERROR:"))
		s.info.ErrorMessage = s.errMsg
		s.push(true)
	case strings.HasPrefix(trimmed, "WARNING:"):
		s.feeder.log.Warnf("yt-dlp warning for %s: %s", s.id, strings.TrimSpace(strings.TrimPrefix(trimmed, "WARNING:")))
	case strings.HasPrefix(trimmed, "["):
		s.handleStep(trimmed)
	}
}

func (s *session) handleDownloadLine(content string) {
	if strings.HasPrefix(content, "Destination:") {
		destination := strings.TrimSpace(strings.TrimPrefix(content, "Destination:"))

		// Each destination is a new stream; bytes start over.
		s.info.Filename = destination
		s.info.DownloadedBytes = 0
		s.info.TotalBytes = nil
		s.info.TotalBytesEstimate = nil
		s.info.Percentage = nil
		s.info.Speed = nil
		s.info.ETA = nil
		s.info.FragmentIndex = nil
		s.info.FragmentCount = nil
		s.info.CurrentOperation = "Downloading"
		s.setStatus(status.Downloading)
		s.push(true)

		return
	}

	if name, ok := strings.CutSuffix(content, " has already been downloaded"); ok {
		s.info.Filename = name
		s.info.Percentage = progress.Float64(100)
		s.info.CurrentOperation = "Already downloaded"
		s.setStatus(status.Downloading)
		s.push(true)

		return
	}

	p, ok := parseProgress(content)
	if !ok {
		return
	}

	changed := s.setStatus(status.Downloading)
	s.info.CurrentOperation = "Downloading"

	s.info.Percentage = progress.Float64(p.percentage)

	if p.total > 0 {
		if p.estimate {
			s.info.TotalBytesEstimate = progress.Int64(p.total)
			s.info.TotalBytes = nil
		} else {
			s.info.TotalBytes = progress.Int64(p.total)
			s.info.TotalBytesEstimate = nil
		}
		s.info.DownloadedBytes = p.downloaded
	}

	s.info.Speed = nil
	if p.hasSpeed {
		s.info.Speed = progress.Float64(float64(p.speed))
	}

	s.info.ETA = nil
	if p.hasETA {
		s.info.ETA = progress.Float64(p.eta.Seconds())
	}

	if p.fragCount > 0 {
		s.info.FragmentIndex = progress.Int(p.fragIndex)
		s.info.FragmentCount = progress.Int(p.fragCount)
	}

	s.push(changed || p.percentage >= 100)
}

// handleStep handles "[Tag] ..." lines other than [download].
func (s *session) handleStep(line string) {
	end := strings.Index(line, "]")
	if end < 0 {
		return
	}

	tag := line[1:end]
	rest := strings.TrimSpace(line[end+1:])

	op, ok := postProcessors[tag]
	if !ok && strings.HasPrefix(tag, "Fixup") {
		op, ok = "Fixing up media", true
	}

	if ok {
		if name := lastQuoted(rest); name != "" {
			s.info.Filename = name
		} else if dest, found := strings.CutPrefix(rest, "Destination:"); found {
			s.info.Filename = strings.TrimSpace(dest)
		}

		s.info.CurrentOperation = op
		s.info.Speed = nil
		s.info.ETA = nil
		s.setStatus(status.Processing)
		s.push(true)

		return
	}

	// Extractor chatter ("[youtube] id: Downloading webpage") before the
	// first byte arrives.
	if s.info.Status == status.FetchingInfo {
		if _, msg, found := strings.Cut(rest, ": "); found {
			rest = msg
		}
		s.info.CurrentOperation = rest
		s.push(false)
	}
}

// hookProgress is the progress dict yt-dlp prints with
// --progress-template "download:%(progress)j".
type hookProgress struct {
	Status             string   `json:"status"`
	DownloadedBytes    *float64 `json:"downloaded_bytes"`
	TotalBytes         *float64 `json:"total_bytes"`
	TotalBytesEstimate *float64 `json:"total_bytes_estimate"`
	Speed              *float64 `json:"speed"`
	ETA                *float64 `json:"eta"`
	Elapsed            *float64 `json:"elapsed"`
	Filename           string   `json:"filename"`
	FragmentIndex      *int     `json:"fragment_index"`
	FragmentCount      *int     `json:"fragment_count"`
}

func (s *session) handleHook(line string) {
	var h hookProgress
	if err := json.Unmarshal([]byte(line), &h); err != nil {
		s.feeder.log.Debugf("ignoring malformed progress line for %s: %v", s.id, err)
		return
	}

	force := false

	switch h.Status {
	case "downloading":
		force = s.setStatus(status.Downloading)
		s.info.CurrentOperation = "Downloading"
		if h.Filename != "" {
			s.info.CurrentOperation = "Downloading " + h.Filename
		}
	case "finished":
		s.info.CurrentOperation = "Download completed"
		force = true
	case "error":
		if s.errMsg == "" {
			s.errMsg = "download error"
		}
		s.info.ErrorMessage = s.errMsg
		force = true
	default:
		return
	}

	if h.Filename != "" {
		s.info.Filename = h.Filename
	}

	if h.DownloadedBytes != nil {
		s.info.DownloadedBytes = int64(*h.DownloadedBytes)
	}

	s.info.TotalBytes = toInt64(h.TotalBytes)
	s.info.TotalBytesEstimate = toInt64(h.TotalBytesEstimate)
	s.info.Speed = h.Speed
	s.info.ETA = h.ETA
	s.info.FragmentIndex = h.FragmentIndex
	s.info.FragmentCount = h.FragmentCount

	s.info.Percentage = nil
	if total, ok := s.info.ExpectedBytes(); ok && total > 0 {
		pct := float64(s.info.DownloadedBytes) / float64(total) * 100
		s.info.Percentage = progress.Float64(min(100, pct))
	}

	if h.Status == "finished" {
		s.info.Percentage = progress.Float64(100)
	}

	if h.Elapsed != nil {
		s.hookElapsed = true
		s.info.Elapsed = time.Duration(*h.Elapsed * float64(time.Second))
	}

	s.push(force)
}

func (s *session) setStatus(st status.Status) bool {
	if s.info.Status == st {
		return false
	}

	s.info.Status = st

	return true
}

// push sends the snapshot to the tracker. Unforced pushes are subject to the
// rate limit.
func (s *session) push(force bool) {
	now := s.feeder.clock.Now()

	s.info.UpdatedAt = now
	if !s.hookElapsed {
		s.info.Elapsed = now.Sub(s.start)
	}

	if !force && s.limiter != nil && !s.limiter.AllowN(now, 1) {
		return
	}

	s.feeder.tracker.Update(s.id, s.info.Clone())
}

func (s *session) finish(st status.Status, msg string) {
	s.info.Status = st
	if msg != "" {
		s.info.ErrorMessage = msg
	}

	switch st {
	case status.Completed:
		s.info.CurrentOperation = "Download completed"
		s.info.Percentage = progress.Float64(100)
		s.info.ETA = progress.Float64(0)
		if total, ok := s.info.ExpectedBytes(); ok && total > s.info.DownloadedBytes {
			s.info.DownloadedBytes = total
		}
	case status.Failed:
		s.info.CurrentOperation = "Download failed"
	case status.Cancelled:
		s.info.CurrentOperation = "Download cancelled"
	}

	s.push(true)

	s.feeder.log.Infof("yt-dlp output for %s finished with status %s", s.id, st)
}

func toInt64(v *float64) *int64 {
	if v == nil {
		return nil
	}

	return progress.Int64(int64(*v))
}

// lastQuoted returns the last double-quoted string in line, so
// `Moving file "a" to "b"` yields b.
func lastQuoted(line string) string {
	segments := strings.Split(line, "\"")
	if len(segments) < 3 {
		return ""
	}

	return segments[len(segments)-2]
}

// scanLines splits on \n and on the bare \r yt-dlp uses to redraw its
// progress line.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
