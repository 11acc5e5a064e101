package slogx

import (
	"log/slog"
)

const (
	// KeyLoggerName is the key for the logger name attribute.
	KeyLoggerName = "logger"
	// KeyConversation is the key for the conversation key attribute.
	KeyConversation = "conversation"
	// KeyThread is the key for the remote thread attribute.
	KeyThread = "thread_id"
	// KeyRun is the key for the remote run attribute.
	KeyRun = "run_id"
	// KeyTool is the key for the tool name attribute.
	KeyTool = "tool"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
// A nil error is rendered as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// LoggerName creates a slog.Attr with the provided logger name.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// ConversationKey tags a log record with the caller supplied conversation key.
func ConversationKey(key string) slog.Attr {
	return slog.String(KeyConversation, key)
}

// ThreadID tags a log record with the remote thread handle.
func ThreadID(id string) slog.Attr {
	return slog.String(KeyThread, id)
}

// RunID tags a log record with the remote run handle.
func RunID(id string) slog.Attr {
	return slog.String(KeyRun, id)
}

// Tool tags a log record with a tool name.
func Tool(name string) slog.Attr {
	return slog.String(KeyTool, name)
}
