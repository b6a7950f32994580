// Package session executes compiled queries against a driver and maps the
// raw rows back into nested results.
//
// A PreparedQuery is obtained from a Session and can be run with four result
// shapes, all backed by the same driver call:
//
//	p := s.Prepare(q, fields, session.WithNullability(n))
//	res, err := p.Run(ctx, nil)      // driver result, no decoding
//	rows, err := p.All(ctx, nil)     // []Row decoded by the projection
//	row, err := p.Get(ctx, nil)      // first Row or *sqlq.NotFoundError
//	vals, err := p.Values(ctx, nil)  // [][]any as returned by the driver
//
// Named placeholders are bound at execution time:
//
//	p.All(ctx, map[string]any{"id": 42})
//
// A placeholder without a value fails with *sqlq.BindingError before the
// driver is called. Driver failures are returned as *sqlq.DriverError, which
// unwraps to the original driver error.
package session
