package poller

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	"github.com/rs/zerolog"
)

// Options configures a Poller.
type Options struct {
	TriggerPath string
	Interval    time.Duration
	Claim       types.ClaimOptions
	Handoff     bool
	Recipient   string
	// OnEvent receives each claimed event. The poller claims at most one
	// event per wakeup so consumers control their own pace.
	OnEvent func(types.ClaimedEvent)
}

// Poller claims pending events, waking on the trigger file or on a timer.
// Wakeups from both sources funnel through the same guarded poll, so a
// burst of triggers cannot run claims concurrently or faster than the
// configured interval.
type Poller struct {
	conn    *sql.DB
	opts    Options
	log     zerolog.Logger
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	inFlight bool
	lastPoll time.Time

	wg sync.WaitGroup
}

func New(conn *sql.DB, opts Options, log zerolog.Logger) *Poller {
	return &Poller{conn: conn, opts: opts, log: log}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	p.watcher = watcher
	defer watcher.Close()

	// Watch the directory: the trigger file may not exist yet, and
	// writers replace it rather than appending.
	if err := watcher.Add(filepath.Dir(p.opts.TriggerPath)); err != nil {
		return err
	}

	p.wg.Add(1)
	go p.loop(ctx)

	p.poll()

	<-ctx.Done()
	p.wg.Wait()
	return ctx.Err()
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if event.Name != p.opts.TriggerPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				p.poll()
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// poll claims one event if a poll is due and none is already running.
func (p *Poller) poll() {
	p.mu.Lock()
	if p.inFlight || time.Since(p.lastPoll) < p.opts.Interval {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.lastPoll = time.Now()
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	var event *types.Event
	var err error
	if p.opts.Handoff {
		event, err = db.ClaimNextHandoffEvent(p.conn, types.HandoffClaimOptions{
			ClaimOptions: p.opts.Claim,
			Recipient:    p.opts.Recipient,
		})
	} else {
		event, err = db.ClaimNextEvent(p.conn, p.opts.Claim)
	}
	if err != nil {
		p.log.Error().Err(err).Msg("claim failed")
		return
	}
	if event == nil {
		return
	}

	claimed := types.ClaimedEvent{Event: *event}
	topic, err := db.GetTopicByName(p.conn, event.Topic)
	if err != nil {
		p.log.Warn().Err(err).Str("topic", event.Topic).Msg("topic lookup failed")
	} else if topic != nil {
		claimed.SystemPrompt = topic.SystemPrompt
	}

	p.log.Info().Str("event_id", event.ID).Str("topic", event.Topic).Msg("claimed event")
	if p.opts.OnEvent != nil {
		p.opts.OnEvent(claimed)
	}
}
