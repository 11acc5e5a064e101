package strix

import (
	"time"

	"github.com/casualjim/strix/events"
	"github.com/casualjim/strix/provider"
	"github.com/casualjim/strix/tool"
	"github.com/fogfish/opts"
)

const (
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultCancelTimeout = 30 * time.Second
	DefaultChunkSize     = 1024

	DefaultVoice        = "nova"
	DefaultInputFormat  = "mp4"
	DefaultOutputFormat = "aac"
)

type Option = opts.Option[Assistant]

var (
	// Name is the name the remote assistant is found or created by.
	Name = opts.ForName[Assistant, string]("name")

	// Instructions are the system instructions of a newly created assistant.
	Instructions = opts.ForName[Assistant, string]("instructions")

	// Model is the model of a newly created assistant.
	Model = opts.ForName[Assistant, string]("model")

	Transcriber = opts.ForName[Assistant, provider.Transcriber]("transcriber")
	Synthesizer = opts.ForName[Assistant, provider.Synthesizer]("synthesizer")

	// PollInterval is the pause between two status checks while a stale run is cancelled.
	PollInterval = opts.ForName[Assistant, time.Duration]("pollInterval")

	// CancelTimeout bounds how long a turn waits for a stale run to be cancelled.
	CancelTimeout = opts.ForName[Assistant, time.Duration]("cancelTimeout")

	// ChunkSize is the size of the audio chunks a voice turn yields.
	ChunkSize = opts.ForName[Assistant, int]("chunkSize")

	// FailOnUnknownTool aborts a turn when the run requests a tool that is not
	// registered. By default such calls are skipped.
	FailOnUnknownTool = opts.ForName[Assistant, bool]("failOnUnknownTool")
)

// Audio sets one provider as both transcriber and synthesizer.
func Audio(p interface {
	provider.Transcriber
	provider.Synthesizer
}) Option {
	return opts.Type[Assistant](func(a *Assistant) error {
		a.transcriber = p
		a.synthesizer = p
		return nil
	})
}

// Tools registers tools before the remote assistant is resolved, so a newly
// created assistant advertises them.
func Tools(def tool.Definition, extraDefs ...tool.Definition) Option {
	return opts.Type[Assistant](func(a *Assistant) error {
		a.tools.Add(def)
		for _, d := range extraDefs {
			a.tools.Add(d)
		}
		return nil
	})
}

// Hook adds an observer of turn events. Hooks are called in the order they were added.
func Hook(hook events.Hook) Option {
	return opts.Type[Assistant](func(a *Assistant) error {
		if hook != nil {
			a.hooks = append(a.hooks, hook)
		}
		return nil
	})
}
