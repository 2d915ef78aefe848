// Package internalcheck holds source-level policy tests for oakhpke.
//
// The tests load the oakhpke packages with golang.org/x/tools/go/packages
// and walk their syntax trees looking for patterns that leak secrets or
// compare them in variable time. The package has no non-test code and is
// not meant to be imported.
package internalcheck
