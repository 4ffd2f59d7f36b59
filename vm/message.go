package vm

import (
	"github.com/chazu/oops/compiler"
)

// Message is the ephemeral (selector, arguments) pair built for one send.
//
// Name is the head of a headed send ("set" in `set id: 1`) or a unary or
// binary selector; Keywords are the keyword parts paired with Args. The
// lookup key is Selector.
type Message struct {
	Selector string
	Name     string
	Keywords []string
	Args     []Value
}

// NewMessage builds a message from a head name and keyword parts.
func NewMessage(name string, keywords []string, args []Value) *Message {
	return &Message{
		Selector: compiler.SelectorFor(name, keywords),
		Name:     name,
		Keywords: keywords,
		Args:     args,
	}
}

// UnaryMessage builds a message with no arguments.
func UnaryMessage(name string) *Message {
	return &Message{Selector: name, Name: name}
}

// KeywordMessage builds a Smalltalk-style message from a full keyword
// selector such as "at:put:".
func KeywordMessage(selector string, args ...Value) *Message {
	var keywords []string
	start := 0
	for i := 0; i < len(selector); i++ {
		if selector[i] == ':' {
			keywords = append(keywords, selector[start:i])
			start = i + 1
		}
	}
	return &Message{Selector: selector, Keywords: keywords, Args: args}
}

// bindParams binds message arguments to params in frame. Arguments always
// bind by position. When the message names its arguments (a headed send
// with keyword parts) each name must match the parameter at its position.
func bindParams(frame *Frame, params []string, msg *Message) error {
	if len(msg.Args) != len(params) {
		return errArity(msg.Selector, len(params), len(msg.Args))
	}
	if msg.Name != "" && len(msg.Keywords) == len(msg.Args) {
		for i, kw := range msg.Keywords {
			if kw == params[i] {
				continue
			}
			for _, p := range params {
				if p == kw {
					return errMissingArgument(params[i])
				}
			}
			return errUnexpectedArgument(kw)
		}
	}
	for i, p := range params {
		frame.Define(p, msg.Args[i])
	}
	return nil
}
