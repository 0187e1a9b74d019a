/*
Package compiler implements the semantic/ordering pass and the code
generator (spec §4.F/§4.G): it walks a bound *parse.Document, canonicalizes
each element's statement order, wires metal:use-macro/define-slot/fill-slot
and i18n:translate capture, lowers interpolation through package tales, and
lowers the whole tree into a small IR of Op values — directly generalizing
the teacher's executer/Execute(io.Writer, *context) error interface
(executer.go) to Exec(*runtime.Render) error.

Compile is the package's only entry point; everything else supports it.
*/
package compiler
