/*
Package runtime is the small library a compiled chameleon template links
against at render time.

It has no knowledge of markup, TAL statements or TALES expressions; it only
knows how to hold a layered variable scope, track the state of an active
tal:repeat loop, escape and mark up strings, and invoke a translation
callable. The compiler package builds programs out of these pieces; this
package never imports compiler, tales or parse.
*/
package runtime
