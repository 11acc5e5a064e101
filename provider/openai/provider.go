package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/casualjim/strix/pkg/jsonx"
	"github.com/casualjim/strix/pkg/slogx"
	"github.com/casualjim/strix/provider"
	"github.com/casualjim/strix/tool"
	"github.com/go-openapi/strfmt"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

const (
	// DefaultModel is used when an assistant is created without a model.
	DefaultModel = openai.ChatModelGPT4oMini

	transcriptionModel = openai.AudioModelWhisper1
	speechModel        = openai.SpeechModelTTS1
)

var (
	_ provider.Assistants  = (*Provider)(nil)
	_ provider.Transcriber = (*Provider)(nil)
	_ provider.Synthesizer = (*Provider)(nil)
)

type Provider struct {
	client openai.Client
}

func New(options ...option.RequestOption) *Provider {
	return &Provider{
		client: openai.NewClient(options...),
	}
}

func (p *Provider) FindOrCreateAssistant(ctx context.Context, params provider.AssistantParams) (string, error) {
	pager := p.client.Beta.Assistants.ListAutoPaging(ctx, openai.BetaAssistantListParams{Limit: openai.Int(100)})
	for pager.Next() {
		if asst := pager.Current(); asst.Name == params.Name {
			return asst.ID, nil
		}
	}
	if err := pager.Err(); err != nil {
		return "", fmt.Errorf("failed to list assistants: %w", err)
	}

	tools, err := buildTools(params.Tools)
	if err != nil {
		return "", err
	}

	model := params.Model
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	req := openai.BetaAssistantNewParams{
		Model: model,
		Name:  openai.String(params.Name),
		Tools: tools,
	}
	if strings.TrimSpace(params.Instructions) != "" {
		req.Instructions = openai.String(params.Instructions)
	}

	asst, err := p.client.Beta.Assistants.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create assistant %s: %w", params.Name, err)
	}
	slog.Debug("created assistant", slogx.LoggerName("strix.openai"), slog.String("assistant_id", asst.ID), slog.String("name", params.Name))
	return asst.ID, nil
}

func buildTools(defs []tool.Definition) ([]openai.AssistantToolUnionParam, error) {
	tools := make([]openai.AssistantToolUnionParam, 0, len(defs)+1)
	tools = append(tools, openai.AssistantToolUnionParam{OfCodeInterpreter: &openai.CodeInterpreterToolParam{}})

	for _, def := range defs {
		if def.Function == nil {
			return nil, fmt.Errorf("tool %s has nil function", def.Name)
		}

		name, schema := def.ToNameAndSchema()
		parameters, err := jsonx.ToObject(schema)
		if err != nil {
			return nil, fmt.Errorf("failed to convert schema of tool %s: %w", name, err)
		}

		fn := openai.FunctionDefinitionParam{
			Name:       name,
			Parameters: openai.FunctionParameters(parameters),
		}
		if strings.TrimSpace(def.Description) != "" {
			fn.Description = openai.String(def.Description)
		}
		tools = append(tools, openai.AssistantToolParamOfFunction(fn))
	}
	return tools, nil
}

func (p *Provider) CreateThread(ctx context.Context) (string, error) {
	thread, err := p.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return thread.ID, nil
}

func (p *Provider) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := p.client.Beta.Threads.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}

func (p *Provider) CreateMessage(ctx context.Context, threadID, text string) error {
	_, err := p.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Content: openai.BetaThreadMessageNewParamsContentUnion{OfString: openai.String(text)},
		Role:    openai.BetaThreadMessageNewParamsRoleUser,
	})
	if err != nil {
		return fmt.Errorf("failed to create message in thread %s: %w", threadID, err)
	}
	return nil
}

// ActiveRun looks at the most recent run of the thread. A queued run, a run
// in progress or a run waiting for tool outputs all block new messages.
func (p *Provider) ActiveRun(ctx context.Context, threadID string) (string, bool, error) {
	page, err := p.client.Beta.Threads.Runs.List(ctx, threadID, openai.BetaThreadRunListParams{
		Limit: openai.Int(1),
		Order: openai.BetaThreadRunListParamsOrderDesc,
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to list runs of thread %s: %w", threadID, err)
	}
	if len(page.Data) == 0 {
		return "", false, nil
	}

	run := page.Data[0]
	switch provider.RunStatus(run.Status) {
	case provider.RunStatusQueued, provider.RunStatusInProgress, provider.RunStatusRequiresAction:
		return run.ID, true, nil
	}
	return "", false, nil
}

func (p *Provider) RunStatus(ctx context.Context, threadID, runID string) (provider.RunStatus, error) {
	run, err := p.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return "", fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return provider.RunStatus(run.Status), nil
}

func (p *Provider) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := p.client.Beta.Threads.Runs.Cancel(ctx, threadID, runID); err != nil {
		return fmt.Errorf("failed to cancel run %s: %w", runID, err)
	}
	return nil
}

func (p *Provider) StreamRun(ctx context.Context, threadID, assistantID string) (<-chan provider.StreamEvent, error) {
	if threadID == "" || assistantID == "" {
		return nil, fmt.Errorf("thread id and assistant id are required")
	}
	strm := p.client.Beta.Threads.Runs.NewStreaming(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	return follow(ctx, threadID, "", strm), nil
}

func (p *Provider) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []provider.ToolOutput) (<-chan provider.StreamEvent, error) {
	if threadID == "" || runID == "" {
		return nil, fmt.Errorf("thread id and run id are required")
	}

	toolOutputs := make([]openai.BetaThreadRunSubmitToolOutputsParamsToolOutput, len(outputs))
	for i, out := range outputs {
		toolOutputs[i] = openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(out.ToolCallID),
			Output:     openai.String(out.Output),
		}
	}

	strm := p.client.Beta.Threads.Runs.SubmitToolOutputsStreaming(ctx, threadID, runID, openai.BetaThreadRunSubmitToolOutputsParams{
		ToolOutputs: toolOutputs,
	})
	return follow(ctx, threadID, runID, strm), nil
}

// follow translates the remote event stream on its own goroutine. The returned
// channel is closed when the remote stream ends or ctx is done.
func follow(ctx context.Context, threadID, runID string, strm *ssestream.Stream[openai.AssistantStreamEventUnion]) <-chan provider.StreamEvent {
	events := make(chan provider.StreamEvent, 10)
	go func() {
		defer close(events)
		defer strm.Close()

		for strm.Next() {
			event := translate(threadID, &runID, strm.Current())
			if event == nil {
				continue
			}
			if !send(ctx, events, event) {
				return
			}
		}

		if err := strm.Err(); err != nil {
			send(ctx, events, provider.Error{
				ThreadID:  threadID,
				RunID:     runID,
				Err:       err,
				Timestamp: strfmt.DateTime(time.Now()),
			})
		}
	}()
	return events
}

func send(ctx context.Context, events chan<- provider.StreamEvent, event provider.StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- event:
		return true
	}
}

func translate(threadID string, runID *string, event openai.AssistantStreamEventUnion) provider.StreamEvent {
	now := strfmt.DateTime(time.Now())

	switch variant := event.AsAny().(type) {
	case openai.AssistantStreamEventThreadRunCreated:
		*runID = variant.Data.ID
	case openai.AssistantStreamEventThreadMessageDelta:
		var text strings.Builder
		for _, content := range variant.Data.Delta.Content {
			if content.Type == "text" {
				text.WriteString(content.Text.Value)
			}
		}
		if text.Len() == 0 {
			return nil
		}
		return provider.TextDelta{ThreadID: threadID, RunID: *runID, Text: text.String(), Timestamp: now}
	case openai.AssistantStreamEventThreadRunRequiresAction:
		run := variant.Data
		*runID = run.ID
		calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
		toolCalls := make([]provider.ToolCall, len(calls))
		for i, call := range calls {
			toolCalls[i] = provider.ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			}
		}
		return provider.ActionRequired{ThreadID: threadID, RunID: run.ID, ToolCalls: toolCalls, Timestamp: now}
	case openai.AssistantStreamEventThreadRunCompleted:
		return runFinished(threadID, variant.Data, now)
	case openai.AssistantStreamEventThreadRunIncomplete:
		return runFinished(threadID, variant.Data, now)
	case openai.AssistantStreamEventThreadRunCancelled:
		return runFinished(threadID, variant.Data, now)
	case openai.AssistantStreamEventThreadRunExpired:
		return runFinished(threadID, variant.Data, now)
	case openai.AssistantStreamEventThreadRunFailed:
		run := variant.Data
		return provider.Error{
			ThreadID:  threadID,
			RunID:     run.ID,
			Err:       fmt.Errorf("run failed: %s: %s", run.LastError.Code, run.LastError.Message),
			Timestamp: now,
		}
	case openai.AssistantStreamEventErrorEvent:
		return provider.Error{
			ThreadID:  threadID,
			RunID:     *runID,
			Err:       fmt.Errorf("stream error: %s: %s", variant.Data.Code, variant.Data.Message),
			Timestamp: now,
		}
	}
	return nil
}

func runFinished(threadID string, run openai.Run, ts strfmt.DateTime) provider.StreamEvent {
	return provider.RunFinished{ThreadID: threadID, RunID: run.ID, Status: provider.RunStatus(run.Status), Timestamp: ts}
}

// Transcribe sends the audio to the transcription endpoint. The format is used
// as the extension of a synthetic file name, which is how the service detects
// the encoding.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	contentType := mime.TypeByExtension("." + format)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := p.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "file."+format, contentType),
		Model: transcriptionModel,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return res.Text, nil
}

func (p *Provider) Synthesize(ctx context.Context, text, voice, format string) (io.ReadCloser, error) {
	res, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          speechModel,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(format),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	return res.Body, nil
}
