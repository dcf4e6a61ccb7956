// Package memory provides the typed object pool backing tree node
// allocation. The pool carries an optional live-object budget so that
// allocation failure is an ordinary error rather than a crash.
package memory
