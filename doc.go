/*
Package strix holds conversations with a hosted assistant.

An Assistant maps every conversation key to a remote thread, sends user input
to it, follows the resulting run as it streams and runs the local tools the run
asks for. Each completed exchange is persisted as a store.Turn.

# Basic Usage

	st, err := sqlite.Open("strix.db")
	if err != nil {
		return err
	}
	defer st.Close()

	remote := openai.New(option.WithAPIKey(key))
	assistant, err := strix.New(ctx, remote, st,
		strix.Name("concierge"),
		strix.Instructions("You answer questions about the weather."),
		strix.Audio(remote),
		strix.Tools(tool.Must(lookup, tool.Name("lookup"), tool.Parameters("city"))),
	)
	if err != nil {
		return err
	}

	for fragment, err := range assistant.SendText(ctx, "user-42", "Is it raining in Paris?") {
		if err != nil {
			return err
		}
		fmt.Print(fragment)
	}

# Turns

A text turn resolves the thread of the conversation, creating and persisting
it when the key is new. A run that is still active on the thread is cancelled
and polled until it stopped, bounded by CancelTimeout. The user message is
then added and a run is streamed. Fragments are yielded as they arrive, and
once the run completed the turn is stored with the concatenated fragments as
its output.

When the run pauses for tool outputs, the requested tools are called in order
and their outputs submitted in a single request. The resumed run keeps
streaming into the same turn. A tool that fails or panics aborts the turn.
Tools the assistant does not know are skipped unless FailOnUnknownTool is set.

A voice turn transcribes the audio first and uses the transcript as the user
message. The reply is not yielded as text, it is synthesized and yielded as
audio chunks of ChunkSize bytes.

# Failures

Every failure ends the turn and is yielded as the last element of the
sequence, nothing is persisted for a failed turn. The only failure that is
tolerated is a rejected cancel request for a stale run: it is logged and the
status poll decides whether the turn can proceed.

# Concurrency

Turns for different conversations run independently, every turn keeps its
own state. Turns for the same conversation must not overlap: two concurrent
turns can both find no active run on the thread, and the remote service then
rejects the message of the second.

# Hooks

Hook observes every turn: fragments, tool calls and outputs, completed turns
and errors. The strix command forwards them to a broker topic per
conversation.
*/
package strix
