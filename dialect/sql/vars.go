package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/sqlq/dialect"
)

// connVar is a session variable set on the connection before a statement.
type connVar struct{ name, value string }

type varsKey struct{}

// WithVar returns a context whose statements run after "SET name = 'value'"
// on their connection. Outside a transaction the variable is reset before the
// connection returns to the pool.
//
//	ctx = sql.WithVar(ctx, "app.tenant_id", "42")
func WithVar(ctx context.Context, name, value string) context.Context {
	vars := varsFrom(ctx)
	vars = append(vars[:len(vars):len(vars)], connVar{name: name, value: value})
	return context.WithValue(ctx, varsKey{}, vars)
}

// WithIntVar is WithVar for integer values.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// VarFromContext returns the last value set for name by WithVar.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	vars := varsFrom(ctx)
	for i := len(vars) - 1; i >= 0; i-- {
		if vars[i].name == name {
			return vars[i].value, true
		}
	}
	return "", false
}

func varsFrom(ctx context.Context) []connVar {
	vars, _ := ctx.Value(varsKey{}).([]connVar)
	return vars
}

var varName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]{0,127}$`)

func isValidIdentifier(s string) bool { return varName.MatchString(s) }

// escapeStringValue escapes s for a single quoted SQL literal.
func escapeStringValue(s string) string {
	return strings.NewReplacer(`\`, `\\`, "'", "''").Replace(s)
}

// resetVar returns the statement restoring name, or "" when the dialect has none.
func resetVar(d, name string) string {
	switch dialectOf(d) {
	case dialect.Postgres:
		return "RESET " + name
	case dialect.MySQL:
		return fmt.Sprintf("SET %s = NULL", name)
	}
	return ""
}

// withVars returns the ExecQuerier to run a statement on, with the context
// variables set on it, and a release function when a connection was taken
// from the pool.
func (c Conn) withVars(ctx context.Context) (ExecQuerier, func() error, error) {
	vars := varsFrom(ctx)
	if len(vars) == 0 {
		return c.ExecQuerier, nil, nil
	}
	for _, v := range vars {
		if !isValidIdentifier(v.name) {
			return nil, nil, fmt.Errorf("invalid session variable name: %q", v.name)
		}
	}
	var (
		ex      ExecQuerier
		release func() error
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, release = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	var resets []string
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if _, err := ex.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", v.name, escapeStringValue(v.value))); err != nil {
			if release != nil {
				err = errors.Join(err, release())
			}
			return nil, nil, err
		}
		if r := resetVar(c.dialect, v.name); r != "" && !seen[v.name] {
			resets = append(resets, r)
		}
		seen[v.name] = true
	}
	if release == nil || len(resets) == 0 {
		return ex, release, nil
	}
	// The resets run even when ctx was canceled by the statement.
	return ex, func() error {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		for _, r := range resets {
			if _, err := ex.ExecContext(rctx, r); err != nil {
				return errors.Join(err, release())
			}
		}
		return release()
	}, nil
}
