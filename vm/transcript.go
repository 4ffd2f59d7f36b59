package vm

import "fmt"

// newTranscript creates the Transcript global. Each write ends with a
// newline.
func newTranscript() *Native {
	t := NewNative("Transcript")

	t.Define("show:", 1, func(in *Interpreter, recv Value, msg *Message) (Value, error) {
		fmt.Fprintln(in.out, msg.Args[0].DisplayString())
		return recv, nil
	})

	t.Define("print:", 1, func(in *Interpreter, recv Value, msg *Message) (Value, error) {
		fmt.Fprintln(in.out, msg.Args[0].String())
		return recv, nil
	})

	t.Define("cr", 0, func(in *Interpreter, recv Value, _ *Message) (Value, error) {
		fmt.Fprintln(in.out)
		return recv, nil
	})

	return t
}
