/*
Package parse turns template source text into an annotated element tree:
a single-pass tokenizer (lexer.go) feeding a permissive markup parser
(parser.go) that builds an *Element tree, followed by a namespace filter
(namespace.go) that lifts TAL/METAL/I18N/META control attributes off their
elements into typed Statement values (statement.go).

The tokenizer and markup parser are deliberately lossless outside of the
control-namespace attributes the filter strips: re-serializing a parsed tree
reproduces the source byte for byte except for those attributes, which is
testable property 1 of the specification this package implements.
*/
package parse
