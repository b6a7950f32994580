// Package migrate applies ordered migrations through a session.
//
// Statements are executed one by one in declared order. The first failing
// statement stops the run and is returned; statements that already ran stay
// applied. Migrate never rolls back.
//
//	err := migrate.Migrate(ctx, db.Session(), []migrate.Migration{
//	    migrate.Parse("0000_init", initSQL),
//	}, migrate.WithJournal(migrate.DefaultJournal))
package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/syssam/sqlq/dialect"
	"github.com/syssam/sqlq/expr"
	"github.com/syssam/sqlq/schema"
	"github.com/syssam/sqlq/session"
)

// DefaultJournal is the conventional name of the journal table.
const DefaultJournal = "__sqlq_migrations"

// Breakpoint separates the statements of a migration file.
const Breakpoint = "--> statement-breakpoint"

// Migration is a named, ordered list of SQL statements.
type Migration struct {
	Name       string
	Statements []string
}

// Parse splits sql on Breakpoint markers into a migration. Blank statements
// are dropped.
func Parse(name, sql string) Migration {
	m := Migration{Name: name}
	for _, stmt := range strings.Split(sql, Breakpoint) {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			m.Statements = append(m.Statements, stmt)
		}
	}
	return m
}

// Hash returns the hex encoded SHA-256 of the statements.
func (m Migration) Hash() string {
	h := sha256.New()
	for _, stmt := range m.Statements {
		h.Write([]byte(stmt))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type options struct {
	journal string
	logger  *slog.Logger
}

// Option configures Migrate.
type Option func(*options)

// WithJournal records applied migrations in the named table, created when
// missing. Migrations whose hash is already recorded are skipped.
func WithJournal(table string) Option {
	return func(o *options) {
		o.journal = table
	}
}

// WithLogger logs applied and skipped migrations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Migrate executes the statements of migrations sequentially and returns the
// first error, annotated with the migration name and statement index.
func Migrate(ctx context.Context, s *session.Session, migrations []Migration, opts ...Option) error {
	o := &options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}
	var j *journal
	applied := make(map[string]bool)
	if o.journal != "" {
		j = newJournal(s, o.journal)
		if err := j.create(ctx); err != nil {
			return err
		}
		hashes, err := j.hashes(ctx)
		if err != nil {
			return err
		}
		for _, h := range hashes {
			applied[h] = true
		}
	}
	for _, m := range migrations {
		hash := m.Hash()
		if applied[hash] {
			o.logger.DebugContext(ctx, "migration already applied", "migration", m.Name)
			continue
		}
		start := time.Now()
		for i, stmt := range m.Statements {
			if _, err := s.Run(ctx, expr.Raw(stmt)); err != nil {
				return fmt.Errorf("migrate: %s: statement %d: %w", m.Name, i, err)
			}
		}
		if j != nil {
			if err := j.record(ctx, hash); err != nil {
				return fmt.Errorf("migrate: %s: %w", m.Name, err)
			}
		}
		applied[hash] = true
		o.logger.InfoContext(ctx, "migration applied", "migration", m.Name,
			"statements", len(m.Statements), "duration", time.Since(start))
	}
	return nil
}

// journal is the table of applied migration hashes.
type journal struct {
	session *session.Session
	table   *schema.Table
}

func newJournal(s *session.Session, name string) *journal {
	return &journal{
		session: s,
		table: schema.NewTable(name,
			schema.Integer("id").PrimaryKey(),
			schema.Text("hash").NotNull(),
			schema.Integer("created_at"),
		),
	}
}

func (j *journal) create(ctx context.Context) error {
	d := j.session.Dialect()
	id := "serial primary key"
	if d.Name() == dialect.SQLite {
		id = "integer primary key"
	}
	ddl := fmt.Sprintf("create table if not exists %s (%s %s, %s text not null, %s bigint)",
		d.EscapeName(j.table.Name()), d.EscapeName("id"), id, d.EscapeName("hash"), d.EscapeName("created_at"))
	if _, err := j.session.Run(ctx, expr.Raw(ddl)); err != nil {
		return fmt.Errorf("migrate: creating journal: %w", err)
	}
	return nil
}

func (j *journal) hashes(ctx context.Context) ([]string, error) {
	hash := j.table.C("hash")
	f, err := j.session.Dialect().BuildSelect(&dialect.SelectConfig{
		Fields:  []dialect.SelectedField{dialect.ColumnField(hash)},
		Source:  dialect.TableSource(j.table),
		OrderBy: []expr.Expr{expr.Col(j.table.C("id"))},
	})
	if err != nil {
		return nil, err
	}
	q, err := j.session.Dialect().Compile(f)
	if err != nil {
		return nil, err
	}
	rows, err := j.session.Prepare(q, []dialect.SelectedField{dialect.ColumnField(hash)}).All(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("migrate: reading journal: %w", err)
	}
	hashes := make([]string, 0, len(rows))
	for _, r := range rows {
		if h, ok := r[hash.Key].(string); ok {
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

func (j *journal) record(ctx context.Context, hash string) error {
	f, err := j.session.Dialect().BuildInsert(&dialect.InsertConfig{
		Table:  j.table,
		Values: []map[string]any{{"hash": hash, "createdAt": time.Now().UnixMilli()}},
	})
	if err != nil {
		return err
	}
	p, err := j.session.PrepareExpr(f)
	if err != nil {
		return err
	}
	if _, err := p.Run(ctx, nil); err != nil {
		return fmt.Errorf("recording in journal: %w", err)
	}
	return nil
}
