/*
Package tales implements the TALES expression sub-language: a small
registry mapping a typed prefix ("python", "string", "exists", "not",
"import", "load", "structure") to a compiler that turns the expression's
raw payload into an Expr, plus the pipe ("|") fallback chain and the
"${ ... }" interpolation lowerer.

The default ("python") grammar is built with participle
(github.com/alecthomas/participle/v2), the same parser-combinator library
golangee-dyml uses for its own attribute grammar: a chain of
precedence-climbing structs (Ternary -> OrTest -> AndTest -> NotTest ->
Comparison -> Arith -> Term -> Unary -> Power -> Atom+Trailer) that double
as both the grammar and the expression AST — each node implements Eval
against a *runtime.Render.

This package imports runtime (for Access/Truthy/the error kinds/Render) but
is never imported by it; its consumers are package compiler and the root
chameleon package, which reads Builtins.
*/
package tales
