package workspace

import (
	"fmt"

	"bennypowers.dev/vuextract/internal/extract"
	"bennypowers.dev/vuextract/internal/log"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LogError logs to stderr and, when a client is attached, to its output
// channel via window/logMessage.
func LogError(context *glsp.Context, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	log.Error("%s", message)
	logMessage(context, protocol.MessageTypeError, message)
}

// LogWarning is LogError at warning level.
func LogWarning(context *glsp.Context, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	log.Warn("%s", message)
	logMessage(context, protocol.MessageTypeWarning, message)
}

// logMessage is fire-and-forget: handlers may run on the message loop.
func logMessage(context *glsp.Context, messageType protocol.MessageType, message string) {
	if context == nil || context.Notify == nil {
		return
	}
	go context.Notify(protocol.ServerWindowLogMessage, &protocol.LogMessageParams{
		Type:    messageType,
		Message: message,
	})
}

// ShowMessage displays message to the user with window/showMessage.
// It blocks until the notification is written, so call it off the
// message loop.
func ShowMessage(context *glsp.Context, messageType protocol.MessageType, message string) {
	if context == nil || context.Notify == nil {
		return
	}
	context.Notify(protocol.ServerWindowShowMessage, &protocol.ShowMessageParams{
		Type:    messageType,
		Message: message,
	})
}

// MessageType maps an extraction severity to the LSP message type.
func MessageType(severity extract.Severity) protocol.MessageType {
	switch severity {
	case extract.SeverityError:
		return protocol.MessageTypeError
	case extract.SeverityWarning:
		return protocol.MessageTypeWarning
	default:
		return protocol.MessageTypeInfo
	}
}
