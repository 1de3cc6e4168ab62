// Package ident generates synthetic object identifiers.
//
// Identifiers look like Stripe ones but carry a "test_" namespace, e.g.
// test_cus_1 or test_evt_42, so that code under test can recognise them.
package ident

import (
	"fmt"
	"regexp"
)

// Namespace prefixes every generated identifier.
const Namespace = "test_"

var testID = regexp.MustCompile(`^test_[a-z]+_[0-9]+$`)

// Generator hands out identifiers from a single counter, so no two calls
// return the same value whatever the prefix. The zero value is ready to use.
//
// Generator is not safe for concurrent use.
type Generator struct {
	n uint64
}

// Next returns a fresh identifier for the given object prefix (e.g. "cus").
func (g *Generator) Next(prefix string) string {
	g.n++
	return fmt.Sprintf("%s%s_%d", Namespace, prefix, g.n)
}

// Count returns how many identifiers have been issued.
func (g *Generator) Count() uint64 {
	return g.n
}

// Pattern matches identifiers generated for prefix.
func Pattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + Namespace + regexp.QuoteMeta(prefix) + `_[0-9]+$`)
}

// IsTestID reports whether id was produced by a Generator.
func IsTestID(id string) bool {
	return testID.MatchString(id)
}
