package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a table definition problem.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the validation errors joined into one error, or nil.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return fmt.Errorf("schema: invalid tables:\n%s", r)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateTable validates a single table definition.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}
	if t.name == "" {
		result.Errors = append(result.Errors, &ValidationError{
			Message: "table has no name",
		})
	}
	if len(t.PrimaryKey()) == 0 {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.name,
			Message: "table has no primary key",
		})
	}
	names := make(map[string]bool, len(t.columns))
	keys := make(map[string]bool, len(t.columns))
	for _, c := range t.columns {
		switch {
		case c.Name == "":
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.name,
				Message: "column has no name",
			})
		case names[c.Name]:
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.name,
				Column:  c.Name,
				Message: "duplicate column name",
			})
		}
		names[c.Name] = true
		if keys[c.Key] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.name,
				Column:  c.Name,
				Message: fmt.Sprintf("duplicate field key %q", c.Key),
			})
		}
		keys[c.Key] = true
		if !c.Type.Valid() {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.name,
				Column:  c.Name,
				Message: "invalid column type",
			})
		}
		if !c.Nullable && c.HasDefault && c.DefaultValue == nil {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   t.name,
				Column:  c.Name,
				Message: "NOT NULL column has a NULL default",
			})
		}
	}
	return result
}

// ValidateSchema validates all tables and the foreign-key references between them.
func ValidateSchema(tables []*Table) *ValidationResult {
	result := &ValidationResult{}
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		if _, ok := byName[t.name]; ok {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.name,
				Message: "duplicate table name",
			})
		}
		byName[t.name] = t
		tr := ValidateTable(t)
		result.Errors = append(result.Errors, tr.Errors...)
		result.Warnings = append(result.Warnings, tr.Warnings...)
	}
	for _, t := range tables {
		for _, c := range t.columns {
			if c.Ref == nil {
				continue
			}
			rt, ok := byName[c.Ref.Table]
			if !ok {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.name,
					Column:  c.Name,
					Message: fmt.Sprintf("foreign key references non-existent table %q", c.Ref.Table),
				})
				continue
			}
			if !rt.hasColumn(c.Ref.Column) {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.name,
					Column:  c.Name,
					Message: fmt.Sprintf("foreign key references non-existent column %q.%q", c.Ref.Table, c.Ref.Column),
				})
			}
		}
	}
	return result
}

func (t *Table) hasColumn(name string) bool {
	for _, c := range t.columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
