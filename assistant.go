package strix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/casualjim/strix/events"
	"github.com/casualjim/strix/internal/relay"
	"github.com/casualjim/strix/internal/resolver"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/pkg/uuidx"
	"github.com/casualjim/strix/provider"
	"github.com/casualjim/strix/store"
	"github.com/casualjim/strix/tool"
	"github.com/fogfish/opts"
)

var (
	// ErrNoTranscriber is returned by audio operations when no transcriber is configured.
	ErrNoTranscriber = errors.New("no transcriber configured")

	// ErrNoSynthesizer is returned by voice turns when no synthesizer is configured.
	ErrNoSynthesizer = errors.New("no synthesizer configured")

	// ErrCancelTimeout is returned when a stale run did not stop within the cancel timeout.
	ErrCancelTimeout = errors.New("timed out waiting for run to be cancelled")

	// ErrSequenceConsumed is yielded when a turn sequence is ranged over a second time.
	ErrSequenceConsumed = errors.New("turn sequence already consumed")
)

// Assistant holds conversations with a remote assistant. It is safe for
// concurrent use by different conversations.
type Assistant struct {
	name              string
	instructions      string
	model             string
	transcriber       provider.Transcriber
	synthesizer       provider.Synthesizer
	pollInterval      time.Duration
	cancelTimeout     time.Duration
	chunkSize         int
	failOnUnknownTool bool
	hooks             []events.Hook

	assistants  provider.Assistants
	store       store.Store
	tools       *tool.Registry
	hook        events.Hook
	resolver    *resolver.Resolver
	assistantID string
	logger      *slog.Logger
}

// New finds the remote assistant by name, creating it with the configured
// instructions, model and tools when it does not exist yet.
func New(ctx context.Context, assistants provider.Assistants, st store.Store, options ...Option) (*Assistant, error) {
	if assistants == nil {
		return nil, errors.New("assistants provider is required")
	}
	if st == nil {
		return nil, errors.New("store is required")
	}

	a := Assistant{
		pollInterval:  DefaultPollInterval,
		cancelTimeout: DefaultCancelTimeout,
		chunkSize:     DefaultChunkSize,
		assistants:    assistants,
		store:         st,
		tools:         tool.NewRegistry(),
	}
	if err := opts.Apply(&a, options); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	a.hook = composeHooks(a.hooks)
	a.logger = slog.Default().With(slogx.LoggerName("strix"), slog.String("assistant", a.name))

	res, err := resolver.New(a.tools, assistants,
		resolver.WithHook(a.hook),
		resolver.FailOnUnknownTool(a.failOnUnknownTool),
	)
	if err != nil {
		return nil, err
	}
	a.resolver = res

	a.assistantID, err = assistants.FindOrCreateAssistant(ctx, provider.AssistantParams{
		Name:         a.name,
		Instructions: a.instructions,
		Model:        a.model,
		Tools:        a.tools.Definitions(),
	})
	if err != nil {
		return nil, err
	}
	a.logger.DebugContext(ctx, "assistant ready", slog.String("assistant_id", a.assistantID))
	return &a, nil
}

func (a *Assistant) validate() error {
	if strings.TrimSpace(a.name) == "" {
		return errors.New("assistant name is required")
	}
	if a.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive: %s", a.pollInterval)
	}
	if a.cancelTimeout <= 0 {
		return fmt.Errorf("cancel timeout must be positive: %s", a.cancelTimeout)
	}
	if a.chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive: %d", a.chunkSize)
	}
	return nil
}

// ID returns the ID of the remote assistant.
func (a *Assistant) ID() string {
	return a.assistantID
}

// AddTool registers fn for dispatch. A remote assistant that already existed
// keeps the tools it was created with.
func (a *Assistant) AddTool(fn any, options ...tool.Option) (tool.Definition, error) {
	def, err := tool.New(fn, options...)
	if err != nil {
		return tool.Definition{}, err
	}
	return a.tools.Add(def), nil
}

// RemoveTool stops dispatching calls to the named tool and reports whether it
// was registered. Later calls are treated as calls to an unknown tool.
func (a *Assistant) RemoveTool(name string) bool {
	return a.tools.Remove(name)
}

// Tools returns the registered tools in registration order.
func (a *Assistant) Tools() []tool.Definition {
	return a.tools.Definitions()
}

// History returns the persisted turns of a conversation in insertion order.
func (a *Assistant) History(ctx context.Context, key string) ([]store.Turn, error) {
	return a.store.Turns(ctx, key)
}

// SendText runs a text turn and yields the generated text as it arrives. The
// turn is persisted after the run completed, with the concatenation of every
// yielded fragment as its output.
//
// A failure is yielded as the last element. Stopping the iteration early or
// cancelling ctx aborts the turn and nothing is persisted. The sequence runs
// the turn once; ranging it again only yields ErrSequenceConsumed.
func (a *Assistant) SendText(ctx context.Context, key, text string) iter.Seq2[string, error] {
	return once[string](func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		threadID, err := a.prepare(ctx, key)
		if err != nil {
			a.fail(ctx, key, "", err)
			yield("", err)
			return
		}

		turn, err := a.run(ctx, key, threadID, text)
		if err != nil {
			a.fail(ctx, key, "", err)
			yield("", err)
			return
		}
		defer turn.Close()

		for fragment := range turn.Fragments() {
			if !yield(fragment, nil) {
				a.logger.DebugContext(ctx, "turn abandoned by caller", slogx.ConversationKey(key))
				return
			}
		}
		if err := turn.Wait(); err != nil {
			a.fail(ctx, key, turn.RunID(), err)
			yield("", err)
			return
		}

		if err := a.persist(ctx, key, text, turn.Text()); err != nil {
			a.fail(ctx, key, turn.RunID(), err)
			yield("", err)
		}
	})
}

// SendAudio runs a voice turn. The audio is transcribed and sent as the user
// message, the run is followed to completion without yielding text, the turn
// is persisted with the transcript as input and the reply is synthesized and
// yielded in chunks of the configured size.
//
// Empty formats and voice fall back to DefaultInputFormat, DefaultVoice and
// DefaultOutputFormat. Like SendText, the sequence can be ranged once.
func (a *Assistant) SendAudio(ctx context.Context, key string, audio []byte, inputFormat, voice, outputFormat string) iter.Seq2[[]byte, error] {
	return once[[]byte](func(yield func([]byte, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		if a.synthesizer == nil {
			yield(nil, ErrNoSynthesizer)
			return
		}

		threadID, err := a.prepare(ctx, key)
		if err != nil {
			a.fail(ctx, key, "", err)
			yield(nil, err)
			return
		}

		transcript, err := a.Transcribe(ctx, audio, orDefault(inputFormat, DefaultInputFormat))
		if err != nil {
			a.fail(ctx, key, "", err)
			yield(nil, err)
			return
		}

		turn, err := a.run(ctx, key, threadID, transcript, relay.Accumulate())
		if err != nil {
			a.fail(ctx, key, "", err)
			yield(nil, err)
			return
		}
		defer turn.Close()

		if err := turn.Wait(); err != nil {
			a.fail(ctx, key, turn.RunID(), err)
			yield(nil, err)
			return
		}

		reply := turn.Text()
		if err := a.persist(ctx, key, transcript, reply); err != nil {
			a.fail(ctx, key, turn.RunID(), err)
			yield(nil, err)
			return
		}

		speech, err := a.synthesizer.Synthesize(ctx, reply, orDefault(voice, DefaultVoice), orDefault(outputFormat, DefaultOutputFormat))
		if err != nil {
			a.fail(ctx, key, turn.RunID(), err)
			yield(nil, err)
			return
		}
		defer speech.Close()

		for chunk, err := range chunks(speech, a.chunkSize) {
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	})
}

// Transcribe turns audio into text.
func (a *Assistant) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if a.transcriber == nil {
		return "", ErrNoTranscriber
	}
	return a.transcriber.Transcribe(ctx, audio, format)
}

// DeleteConversation deletes the remote thread of the conversation and then
// its handle and turns from the store.
func (a *Assistant) DeleteConversation(ctx context.Context, key string) error {
	threadID, ok, err := a.store.GetConversationHandle(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		if err := a.assistants.DeleteThread(ctx, threadID); err != nil {
			return err
		}
	}
	if err := a.store.DeleteConversation(ctx, key); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "conversation deleted", slogx.ConversationKey(key), slogx.ThreadID(threadID))
	return nil
}

// prepare resolves the thread of the conversation and makes sure no run is
// active on it.
//
// Two turns started concurrently for the same key can both find no active
// run. The remote service rejects the second message in that case.
func (a *Assistant) prepare(ctx context.Context, key string) (string, error) {
	threadID, err := a.thread(ctx, key)
	if err != nil {
		return "", err
	}
	if err := a.cancelActiveRun(ctx, key, threadID); err != nil {
		return "", err
	}
	return threadID, nil
}

func (a *Assistant) thread(ctx context.Context, key string) (string, error) {
	threadID, ok, err := a.store.GetConversationHandle(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		return threadID, nil
	}

	threadID, err = a.assistants.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	if err := a.store.SaveConversationHandle(ctx, key, threadID); err != nil {
		return "", err
	}
	a.logger.DebugContext(ctx, "thread created", slogx.ConversationKey(key), slogx.ThreadID(threadID))
	return threadID, nil
}

// cancelActiveRun cancels the run still active on the thread and waits until
// it stopped. A failing cancel request is logged and otherwise ignored, the
// status poll decides.
func (a *Assistant) cancelActiveRun(ctx context.Context, key, threadID string) error {
	runID, active, err := a.assistants.ActiveRun(ctx, threadID)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}

	log := a.logger.With(slogx.ConversationKey(key), slogx.ThreadID(threadID), slogx.RunID(runID))
	log.InfoContext(ctx, "cancelling active run")
	if err := a.assistants.CancelRun(ctx, threadID, runID); err != nil {
		log.WarnContext(ctx, "failed to cancel run", slogx.Error(err))
	}
	return a.awaitStopped(ctx, threadID, runID)
}

// awaitStopped polls the run until it reached a terminal status.
func (a *Assistant) awaitStopped(ctx context.Context, threadID, runID string) error {
	ctx, cancel := context.WithTimeoutCause(ctx, a.cancelTimeout, ErrCancelTimeout)
	defer cancel()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		status, err := a.assistants.RunStatus(ctx, threadID, runID)
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return err
		}
		if status.Terminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
		}
	}
}

// run sends the user message and starts following the run it triggers.
func (a *Assistant) run(ctx context.Context, key, threadID, text string, options ...relay.Option) (*relay.Turn, error) {
	if err := a.assistants.CreateMessage(ctx, threadID, text); err != nil {
		return nil, err
	}

	turn, err := relay.New(ctx, key, a.resolver, append([]relay.Option{relay.WithHook(a.hook)}, options...)...)
	if err != nil {
		return nil, err
	}
	stream, err := a.assistants.StreamRun(ctx, threadID, a.assistantID)
	if err != nil {
		turn.Close()
		return nil, err
	}
	turn.Follow(stream)
	return turn, nil
}

func (a *Assistant) persist(ctx context.Context, key, input, output string) error {
	turn := store.Turn{
		ID:              uuidx.New(),
		ConversationKey: key,
		Input:           input,
		Output:          output,
		Timestamp:       time.Now().UTC(),
	}
	if err := a.store.SaveTurn(ctx, key, turn); err != nil {
		return err
	}
	a.emitTurnCompleted(ctx, key, turn.ID, input, output, turn.Timestamp)
	return nil
}

func (a *Assistant) fail(ctx context.Context, key, runID string, err error) {
	a.logger.ErrorContext(ctx, "turn failed", slogx.ConversationKey(key), slogx.RunID(runID), slogx.Error(err))
	a.emitError(ctx, key, runID, err)
}

// once lets seq run a single time. Later ranges yield ErrSequenceConsumed
// without touching the conversation.
func once[V any](seq iter.Seq2[V, error]) iter.Seq2[V, error] {
	var consumed atomic.Bool
	return func(yield func(V, error) bool) {
		if consumed.Swap(true) {
			var zero V
			yield(zero, ErrSequenceConsumed)
			return
		}
		seq(yield)
	}
}

// chunks reads r in pieces of size bytes. Only the last piece may be shorter.
func chunks(r io.Reader, size int) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, size)
		for {
			n, err := io.ReadFull(r, buf)
			if n > 0 {
				if !yield(bytes.Clone(buf[:n]), nil) {
					return
				}
			}
			switch {
			case err == nil:
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				return
			default:
				yield(nil, err)
				return
			}
		}
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
