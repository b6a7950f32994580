// Package query provides the statement builders of sqlq.
//
// A DB wraps a dialect.Driver and starts select, insert, update and delete
// builders. Chained calls accumulate a configuration that is lowered by the
// dialect compiler when a terminal method (Run, All, Get, Values) is called:
//
//	drv, err := sql.Open("sqlite", "file:app.db")
//	if err != nil {
//	    return err
//	}
//	db, err := query.New(drv)
//	if err != nil {
//	    return err
//	}
//	rows, err := db.Select().
//	    From(users).
//	    LeftJoin(pets, expr.EQ(users.C("id"), pets.C("ownerId"))).
//	    Where(expr.EQ(users.C("name"), "John")).
//	    All(ctx)
//
// Joined rows group fields by table name; a left joined table without match
// decodes to nil:
//
//	[]session.Row{{"users": session.Row{"id": int64(1), "name": "John"}, "pets": nil}}
//
// Where, Having, GroupBy, OrderBy, Limit, Offset and For replace what a
// previous call set. Joins accumulate and fail on a duplicate alias.
//
// Configuration errors are recorded by the builder and returned by its
// terminal methods. Use Prepare to compile a statement once and execute it
// with different placeholder values:
//
//	p, err := db.Select().From(users).Where(expr.EQ(users.C("id"), expr.P("id"))).Prepare("user_by_id")
//	row, err := p.Get(ctx, map[string]any{"id": 1})
package query
