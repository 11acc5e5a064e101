/*
Package openai implements the provider contracts on top of the OpenAI
Assistants and Audio APIs.

# Assistants

FindOrCreateAssistant looks the assistant up by name and creates it when it
does not exist. New assistants get the code interpreter plus one function
tool per registered tool definition, and use gpt-4o-mini unless another model
is configured.

Runs are streamed over server sent events. Every stream is translated on its
own goroutine into provider events:

  - thread.message.delta becomes provider.TextDelta
  - thread.run.requires_action becomes provider.ActionRequired
  - terminal run events become provider.RunFinished
  - a failed run or an error event becomes provider.Error

The channel is closed when the remote stream ends or the context is done.

# Audio

Transcribe uses whisper-1. The service detects the encoding from the file
name, so the audio is uploaded as file.<format>. Synthesize uses tts-1 and
returns the response body, which the caller must close.

# Configuration

New accepts the usual request options:

	p := openai.New(option.WithAPIKey(key))

Without options the client reads OPENAI_API_KEY and OPENAI_BASE_URL from the
environment.
*/
package openai
