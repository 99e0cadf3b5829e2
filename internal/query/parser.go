// Package query turns a raw query string into a boolean filter expression.
//
// The grammar is deliberately minimal and is a documented contract, not a
// simplification to be fixed: the string is split on " OR " first (lowest
// precedence), each OR operand is then split on " AND ", and AND operands
// are never re-split on OR. There is no parenthesis grouping. Leaves keep
// their text verbatim, including empty strings.
package query

import "strings"

// Boolean operator delimiters. Matching is on the literal spaced token, so
// "ANDes" or a lowercase "and" inside a phrase never splits.
const (
	orDelim  = " OR "
	andDelim = " AND "
)

// Expr is a node of the filter expression tree.
type Expr interface {
	isExpr()
}

// Filter is an atomic filter leaf. Text never contains the literal
// " AND "/" OR " delimiters.
type Filter struct {
	Text string
}

// And combines operands by set intersection.
type And struct {
	Operands []Expr
}

// Or combines operands by set union.
type Or struct {
	Operands []Expr
}

func (Filter) isExpr() {}
func (And) isExpr()    {}
func (Or) isExpr()     {}

// Parse builds the expression tree for a raw query. An input with no
// AND/OR tokens yields a single Filter leaf; whitespace-only operands are
// preserved as empty filters and map to empty results downstream.
func Parse(raw string) Expr {
	orParts := strings.Split(raw, orDelim)
	if len(orParts) == 1 {
		return parseConjunction(raw)
	}

	operands := make([]Expr, 0, len(orParts))
	for _, part := range orParts {
		operands = append(operands, parseConjunction(part))
	}
	return Or{Operands: operands}
}

// parseConjunction splits one OR operand on " AND ". Sub-expressions inside
// an AND operand are treated as opaque filter text, one level deep only.
func parseConjunction(part string) Expr {
	andParts := strings.Split(part, andDelim)
	if len(andParts) == 1 {
		return Filter{Text: strings.TrimSpace(part)}
	}

	operands := make([]Expr, 0, len(andParts))
	for _, p := range andParts {
		operands = append(operands, Filter{Text: strings.TrimSpace(p)})
	}
	return And{Operands: operands}
}
