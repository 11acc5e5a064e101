// Package relay follows the event streams of a single turn.
//
// A Turn owns everything a turn accumulates: the text generated so far, the
// fragments not yet consumed, the first failure and the run streams still
// open. Nothing is shared between turns.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/casualjim/strix/events"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/provider"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
)

const defaultBufferSize = 64

// ErrNoFinalStatus is reported when every stream of a turn closed without the
// run reaching a terminal status.
var ErrNoFinalStatus = errors.New("run streams ended without a final status")

// Resolver resumes a run that paused for tool outputs.
type Resolver interface {
	Resolve(ctx context.Context, conversationKey string, action provider.ActionRequired) (<-chan provider.StreamEvent, error)
}

type Option = opts.Option[Turn]

// WithHook sets the hook that receives every fragment.
func WithHook(hook events.Hook) Option {
	return opts.Type[Turn](func(t *Turn) error {
		t.hook = hook
		return nil
	})
}

// WithBufferSize sets how many fragments may wait for the consumer.
func WithBufferSize(size int) Option {
	return opts.Type[Turn](func(t *Turn) error {
		if size < 0 {
			return fmt.Errorf("buffer size must not be negative: %d", size)
		}
		t.bufferSize = size
		return nil
	})
}

// Accumulate only collects text. Fragments are not delivered, the consumer
// reads Text once Wait returns.
func Accumulate() Option {
	return opts.Type[Turn](func(t *Turn) error {
		t.accumulateOnly = true
		return nil
	})
}

type Turn struct {
	ctx             context.Context
	cancel          context.CancelCauseFunc
	conversationKey string
	resolver        Resolver
	hook            events.Hook
	bufferSize      int
	accumulateOnly  bool
	logger          *slog.Logger

	fragments chan string
	done      chan struct{}
	wg        sync.WaitGroup
	closer    sync.Once

	mu     sync.Mutex
	text   strings.Builder
	err    error
	runID  string
	status provider.RunStatus
}

// New prepares a turn for conversationKey. The turn stops following its
// streams when ctx is done.
func New(ctx context.Context, conversationKey string, resolver Resolver, options ...Option) (*Turn, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	t := Turn{
		conversationKey: conversationKey,
		resolver:        resolver,
		bufferSize:      defaultBufferSize,
		done:            make(chan struct{}),
	}
	if err := opts.Apply(&t, options); err != nil {
		return nil, err
	}
	t.ctx, t.cancel = context.WithCancelCause(ctx)
	t.fragments = make(chan string, t.bufferSize)
	t.logger = slog.Default().With(slogx.LoggerName("strix.relay"), slogx.ConversationKey(conversationKey))
	return &t, nil
}

// Follow drains stream on its own goroutine. A stream that pauses for tool
// outputs is resolved on a new goroutine and the resumed stream is followed
// by the same turn.
func (t *Turn) Follow(stream <-chan provider.StreamEvent) {
	t.wg.Add(1)
	t.startCloser()
	go func() {
		defer t.wg.Done()
		t.follow(stream)
	}()
}

func (t *Turn) startCloser() {
	t.closer.Do(func() {
		go func() {
			t.wg.Wait()
			close(t.fragments)
			close(t.done)
		}()
	})
}

func (t *Turn) follow(stream <-chan provider.StreamEvent) {
	for {
		select {
		case <-t.ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			if !t.handle(event) {
				return
			}
		}
	}
}

func (t *Turn) handle(event provider.StreamEvent) bool {
	switch ev := event.(type) {
	case provider.TextDelta:
		return t.fragment(ev)
	case provider.ActionRequired:
		t.setRunID(ev.RunID)
		t.resolve(ev)
		return true
	case provider.RunFinished:
		t.finish(ev)
		return true
	case provider.Error:
		t.fail(ev)
		return false
	default:
		t.logger.Warn("ignoring unknown stream event", slog.String("type", fmt.Sprintf("%T", event)))
		return true
	}
}

func (t *Turn) fragment(ev provider.TextDelta) bool {
	t.mu.Lock()
	t.text.WriteString(ev.Text)
	if ev.RunID != "" {
		t.runID = ev.RunID
	}
	t.mu.Unlock()

	events.Dispatch(t.ctx, t.hook, events.Fragment{
		ConversationKey: t.conversationKey,
		RunID:           ev.RunID,
		Text:            ev.Text,
		Timestamp:       ev.Timestamp,
	})

	if t.accumulateOnly {
		return true
	}
	select {
	case <-t.ctx.Done():
		return false
	case t.fragments <- ev.Text:
		return true
	}
}

// resolve hands the paused run to the resolver without blocking the stream
// that carried the request.
func (t *Turn) resolve(action provider.ActionRequired) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		stream, err := t.resolver.Resolve(t.ctx, t.conversationKey, action)
		if err != nil {
			t.fail(provider.Error{
				ThreadID:  action.ThreadID,
				RunID:     action.RunID,
				Err:       err,
				Timestamp: strfmt.DateTime(time.Now()),
			})
			return
		}
		t.follow(stream)
	}()
}

func (t *Turn) finish(ev provider.RunFinished) {
	t.mu.Lock()
	t.status = ev.Status
	t.runID = ev.RunID
	t.mu.Unlock()

	switch ev.Status {
	case provider.RunStatusCompleted:
	case provider.RunStatusIncomplete:
		t.logger.Warn("run finished incomplete", slogx.RunID(ev.RunID))
	default:
		t.fail(provider.Error{
			ThreadID:  ev.ThreadID,
			RunID:     ev.RunID,
			Err:       fmt.Errorf("run finished with status %s", ev.Status),
			Timestamp: ev.Timestamp,
		})
	}
}

// fail records the first error and stops every stream of the turn.
func (t *Turn) fail(err error) {
	t.mu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.mu.Unlock()
	t.logger.Debug("turn failed", slogx.Error(err))
	t.cancel(err)
}

func (t *Turn) setRunID(runID string) {
	t.mu.Lock()
	t.runID = runID
	t.mu.Unlock()
}

// Fragments delivers text fragments in the order they were produced. The
// channel is closed once every followed stream ended.
func (t *Turn) Fragments() <-chan string {
	return t.fragments
}

// Wait blocks until every followed stream ended and returns the outcome of
// the turn. Follow must not be called once Wait was.
func (t *Turn) Wait() error {
	t.startCloser()
	select {
	case <-t.done:
	case <-t.ctx.Done():
		t.wg.Wait()
	}
	return t.Err()
}

// Err returns the first failure of the turn. A turn that stopped because its
// context ended reports the cause, a turn whose streams all ended before the
// run finished reports ErrNoFinalStatus.
func (t *Turn) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.err != nil:
		return t.err
	case t.status != "":
		return nil
	case t.ctx.Err() != nil:
		return context.Cause(t.ctx)
	default:
		return ErrNoFinalStatus
	}
}

// Text returns everything generated so far.
func (t *Turn) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text.String()
}

// RunID returns the most recent run the turn saw.
func (t *Turn) RunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID
}

// Close stops following the streams of the turn.
func (t *Turn) Close() {
	t.cancel(context.Canceled)
}
