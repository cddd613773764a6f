package conversation

import (
	"strings"
	"unicode"
)

// Command is a parsed "/name args" message.
type Command struct {
	Name string
	Args string
}

// ParseCommand splits a command message. The name is lower-cased and loses
// any "@botname" suffix. ok is false for text that is not a command.
func ParseCommand(text string) (cmd Command, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}
	head, args := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, args = head[:i], head[i:]
	}
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return Command{Name: strings.ToLower(head), Args: strings.TrimSpace(args)}, true
}
