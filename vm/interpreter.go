package vm

import (
	"errors"
	"io"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/oops/compiler"
)

// ---------------------------------------------------------------------------
// Interpreter: tree-walking evaluator
// ---------------------------------------------------------------------------

// DefaultMaxDepth bounds nested method and block activations.
const DefaultMaxDepth = 10000

// Interpreter owns a ClassTable and a global frame and evaluates programs
// against them. Top-level statements run one at a time under a single lock.
type Interpreter struct {
	mu sync.Mutex

	classes    *ClassTable
	globals    *Frame
	dispatcher *Dispatcher

	maxDepth int
	depth    int

	out io.Writer
	log commonlog.Logger
}

// returnSignal carries an explicit return out to its home method
// activation. With a nil home it ends the current top-level statement;
// a local signal ends only the innermost block invocation.
type returnSignal struct {
	home  *activation
	value Value
	local bool
}

func (r *returnSignal) Error() string {
	return "return outside of method"
}

// EvaluateProgram runs each top-level statement in order and returns the
// value of the last one. It stops at the first error; definitions made by
// earlier statements are kept.
func (in *Interpreter) EvaluateProgram(prog *compiler.Program) (Value, error) {
	result := Nil
	for _, stmt := range prog.Statements {
		v, err := in.evalTopLevel(stmt)
		if err != nil {
			return Nil, err
		}
		result = v
	}
	return result, nil
}

// EvalString parses and evaluates source.
func (in *Interpreter) EvalString(source string) (Value, error) {
	prog, err := compiler.Parse(source)
	if err != nil {
		return Nil, err
	}
	return in.EvaluateProgram(prog)
}

func (in *Interpreter) evalTopLevel(stmt compiler.Stmt) (Value, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.depth = 0
	v, err := in.evalStmt(stmt, in.globals)
	var sig *returnSignal
	if errors.As(err, &sig) {
		return sig.value, nil
	}
	return v, err
}

// Send delivers a message from host code, under the interpreter lock.
func (in *Interpreter) Send(recv Value, msg *Message) (Value, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.send(recv, msg)
}

func (in *Interpreter) send(recv Value, msg *Message) (Value, error) {
	v, err := in.dispatcher.Send(recv, msg)
	var sig *returnSignal
	if errors.As(err, &sig) && sig.home == nil {
		return sig.value, nil
	}
	return v, err
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// evalStmts evaluates a body; its value is the value of the last statement.
func (in *Interpreter) evalStmts(stmts []compiler.Stmt, frame *Frame) (Value, error) {
	result := Nil
	for _, stmt := range stmts {
		v, err := in.evalStmt(stmt, frame)
		if err != nil {
			return Nil, err
		}
		result = v
	}
	return result, nil
}

func (in *Interpreter) evalStmt(stmt compiler.Stmt, frame *Frame) (Value, error) {
	switch s := stmt.(type) {
	case *compiler.ExprStmt:
		return in.evalExpr(s.Expr, frame)

	case *compiler.Let:
		v, err := in.evalExpr(s.Value, frame)
		if err != nil {
			return Nil, err
		}
		frame.Define(s.Name, v)
		return v, nil

	case *compiler.Return:
		v, err := in.evalExpr(s.Value, frame)
		if err != nil {
			return Nil, err
		}
		act := frame.activation()
		if act != nil && act.done {
			return Nil, &returnSignal{value: v, local: true}
		}
		return Nil, &returnSignal{home: act, value: v}
	}
	return Nil, errTypeMismatch("", "unknown statement %T", stmt)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) evalExpr(expr compiler.Expr, frame *Frame) (Value, error) {
	switch e := expr.(type) {
	case *compiler.IntLiteral:
		return IntValue(e.Value), nil

	case *compiler.StringLiteral:
		return StringValue(e.Value), nil

	case *compiler.SymbolLiteral:
		return SymbolValue(e.Value), nil

	case *compiler.TrueLiteral:
		return True, nil

	case *compiler.FalseLiteral:
		return False, nil

	case *compiler.NilLiteral:
		return Nil, nil

	case *compiler.ListLiteral:
		elems := make([]Value, len(e.Elements))
		for i, el := range e.Elements {
			v, err := in.evalExpr(el, frame)
			if err != nil {
				return Nil, err
			}
			elems[i] = v
		}
		return ListValue(NewList(elems...)), nil

	case *compiler.Variable:
		return in.lookupVariable(e, frame)

	case *compiler.Self:
		self, ok := frame.Self()
		if !ok {
			return Nil, errNoSelf("").at(e.Span())
		}
		return self, nil

	case *compiler.IVar:
		inst, err := in.currentInstance(e, frame)
		if err != nil {
			return Nil, err
		}
		v, err := inst.GetVar(e.Name)
		if err != nil {
			return Nil, withSpan(err, e.Span())
		}
		return v, nil

	case *compiler.Assignment:
		return in.evalAssignment(e, frame)

	case *compiler.Block:
		return BlockValue(NewBlock(e, frame)), nil

	case *compiler.MessageSend:
		return in.evalSend(e, frame)
	}
	return Nil, errTypeMismatch("", "unknown expression %T", expr)
}

// lookupVariable resolves a name lexically, then as a class name.
func (in *Interpreter) lookupVariable(e *compiler.Variable, frame *Frame) (Value, error) {
	if v, ok := frame.Lookup(e.Name); ok {
		return v, nil
	}
	if c := in.classes.Get(e.Name); c != nil {
		return ClassValue(c), nil
	}
	return Nil, errUnbound(e.Name).at(e.Span())
}

func (in *Interpreter) currentInstance(e *compiler.IVar, frame *Frame) (*Instance, error) {
	self, ok := frame.Self()
	if !ok || self.Type != TypeInstance {
		return nil, errNoSelf(e.Name).at(e.Span())
	}
	return self.InstanceVal, nil
}

func (in *Interpreter) evalAssignment(e *compiler.Assignment, frame *Frame) (Value, error) {
	v, err := in.evalExpr(e.Value, frame)
	if err != nil {
		return Nil, err
	}

	switch target := e.Target.(type) {
	case *compiler.Variable:
		if !frame.Assign(target.Name, v) {
			return Nil, errUnbound(target.Name).at(target.Span())
		}
	case *compiler.IVar:
		inst, err := in.currentInstance(target, frame)
		if err != nil {
			return Nil, err
		}
		if err := inst.SetVar(target.Name, v); err != nil {
			return Nil, withSpan(err, target.Span())
		}
	default:
		return Nil, errTypeMismatch("", "cannot assign to %T", e.Target).at(e.Span())
	}
	return v, nil
}

// evalSend evaluates the receiver, then the arguments left to right, then
// dispatches.
func (in *Interpreter) evalSend(e *compiler.MessageSend, frame *Frame) (Value, error) {
	recv, err := in.evalExpr(e.Receiver, frame)
	if err != nil {
		return Nil, err
	}
	args := make([]Value, len(e.Arguments))
	for i, arg := range e.Arguments {
		v, err := in.evalExpr(arg, frame)
		if err != nil {
			return Nil, err
		}
		args[i] = v
	}

	v, err := in.dispatcher.Send(recv, NewMessage(e.Name, e.Keywords, args))
	if err != nil {
		return Nil, withSpan(err, e.Span())
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Activations
// ---------------------------------------------------------------------------

func (in *Interpreter) enter() error {
	if in.depth >= in.maxDepth {
		return errStackOverflow(in.maxDepth)
	}
	in.depth++
	return nil
}

func (in *Interpreter) leave() {
	in.depth--
}

// invokeMethod runs a user-defined method in a fresh frame whose parent is
// the global frame, with self bound to recv.
func (in *Interpreter) invokeMethod(recv Value, m *Method, msg *Message) (Value, error) {
	act := &activation{self: recv, method: m}
	frame := newMethodFrame(in.globals, act)
	if err := bindParams(frame, m.Params, msg); err != nil {
		return Nil, err
	}

	if err := in.enter(); err != nil {
		return Nil, err
	}
	defer in.leave()

	v, err := in.evalStmts(m.Body.Statements, frame)
	act.done = true

	var sig *returnSignal
	if errors.As(err, &sig) && sig.home == act {
		return sig.value, nil
	}
	return v, err
}

// callBlock invokes a block with msg's arguments bound to its parameters
// in a new frame chained to the block's captured frame.
func (in *Interpreter) callBlock(b *Block, msg *Message) (Value, error) {
	frame := NewFrame(b.Env)
	if err := bindParams(frame, b.Params, msg); err != nil {
		return Nil, err
	}

	if err := in.enter(); err != nil {
		return Nil, err
	}
	defer in.leave()

	v, err := in.evalStmts(b.Body.Statements, frame)
	var sig *returnSignal
	if errors.As(err, &sig) && sig.local {
		return sig.value, nil
	}
	return v, err
}

// callBlockWith invokes a block with positional arguments.
func (in *Interpreter) callBlockWith(b *Block, args ...Value) (Value, error) {
	return in.callBlock(b, &Message{Selector: "call", Args: args})
}

// valueOf evaluates v if it is a zero-argument block and returns it as is
// otherwise, so `if:` and friends accept both blocks and plain values.
func (in *Interpreter) valueOf(v Value) (Value, error) {
	if v.Type == TypeBlock {
		return in.callBlockWith(v.BlockVal)
	}
	return v, nil
}
