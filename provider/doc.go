// Package provider defines what strix needs from the services it talks to:
// a hosted assistant service with threads and runs, a speech transcriber and
// a speech synthesizer.
//
// Runs are streamed. A stream is a channel of StreamEvent that the
// implementation closes once the remote stream ends:
//
//	events, err := assistants.StreamRun(ctx, threadID, assistantID)
//	if err != nil {
//	    return err
//	}
//	for event := range events {
//	    switch e := event.(type) {
//	    case provider.TextDelta:
//	        // generated text
//	    case provider.ActionRequired:
//	        // run paused, submit outputs for e.ToolCalls
//	    case provider.RunFinished:
//	        // terminal status
//	    case provider.Error:
//	        // stream failure
//	    }
//	}
//
// A run that requires action ends its stream. SubmitToolOutputs resumes it
// and returns a new stream for the rest of the run.
package provider
