package flow

import "strings"

// Command is a chat command recognised outside of a running flow.
type Command int

// Commands.
const (
	CommandNone Command = iota
	CommandStartLog
	CommandHello
)

// Command names, without prefix.
const (
	StartLogName = "start_log"
	SlashLogName = "log"
	HelloName    = "hello"
)

// ParseCommand recognises prefix commands such as "!start_log" and the
// slash-style "/log" typed as plain text.
func ParseCommand(prefix, content string) Command {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return CommandNone
	}
	word := fields[0]

	if word == "/"+SlashLogName {
		return CommandStartLog
	}
	if prefix == "" || !strings.HasPrefix(word, prefix) {
		return CommandNone
	}
	switch strings.ToLower(strings.TrimPrefix(word, prefix)) {
	case StartLogName, SlashLogName:
		return CommandStartLog
	case HelloName:
		return CommandHello
	}
	return CommandNone
}
