// Package expr provides the SQL fragment model.
//
// A Fragment is an immutable sequence of chunks: trusted text, identifiers,
// bound parameters, named placeholders, column and table references, and
// nested fragments. Fragments are rendered by a dialect compiler, which quotes
// identifiers and numbers parameters in order of appearance.
//
//	expr.SQL("lower(?) = ?", users.C("name"), "john")
//	expr.And(
//	    expr.EQ(users.C("id"), expr.P("id")),
//	    expr.NotNull(users.C("verified")),
//	)
//
// Right-hand values of comparisons are encoded with the codec of the column
// on the left-hand side.
package expr
