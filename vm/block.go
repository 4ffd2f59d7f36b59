package vm

import (
	"strings"

	"github.com/chazu/oops/compiler"
)

// Block is a closure: the frame active when the literal was evaluated,
// held by reference, plus parameters and body.
type Block struct {
	Params []string
	Body   *compiler.Block
	Env    *Frame
}

// NewBlock closes body over env.
func NewBlock(body *compiler.Block, env *Frame) *Block {
	return &Block{
		Params: body.Parameters,
		Body:   body,
		Env:    env,
	}
}

// Arity returns the number of parameters.
func (b *Block) Arity() int {
	return len(b.Params)
}

func (b *Block) String() string {
	if len(b.Params) == 0 {
		return "a Block"
	}
	return "a Block(" + strings.Join(b.Params, ", ") + ")"
}
