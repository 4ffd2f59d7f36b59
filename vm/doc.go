// Package vm implements the oops object runtime.
//
// This package contains:
//   - Tagged value representation
//   - Run-time mutable classes and the ClassTable
//   - Instances with named instance variable storage
//   - Lexical frames and block closures
//   - Message dispatch over user methods and primitives
//   - A tree-walking interpreter for compiler ASTs
package vm
