package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// identPattern is the grammar every database, table, collection, column,
// trigger, procedure, partition, and user name must satisfy.
var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// validIdent checks a name against the identifier grammar.
func validIdent(kind, name string) error {
	if !identPattern.MatchString(name) {
		return &InvalidNameError{Kind: kind, Name: name}
	}
	return nil
}

// ColumnSpec is the engine-independent column definition. It exists only for
// the duration of a create/alter request: the durable record is the engine's
// own catalog.
type ColumnSpec struct {
	Name            string `json:"name"`
	Type            string `json:"type"` // logical type, e.g. "INTEGER", "VARCHAR(150)"
	PrimaryKey      bool   `json:"primary_key"`
	NotNull         bool   `json:"not_null"`
	Unique          bool   `json:"unique"`
	Autoincrement   bool   `json:"autoincrement"`
	CheckConstraint string `json:"check_constraint,omitempty"`
	Default         string `json:"default,omitempty"`
}

// normalize enforces the ColumnSpec invariants in place:
// primary key and autoincrement both imply unique + not-null.
func (c *ColumnSpec) normalize() {
	if c.PrimaryKey || c.Autoincrement {
		c.Unique = true
		c.NotNull = true
	}
}

// logicalType is a parsed ColumnSpec.Type: a base keyword plus optional
// length/precision and scale.
type logicalType struct {
	Base      string // upper-case keyword: TEXT, INTEGER, VARCHAR, DECIMAL, ...
	Length    int    // VARCHAR/CHAR length or DECIMAL precision, 0 if absent
	Scale     int    // DECIMAL scale, 0 if absent
	HasLength bool
}

var typeSpecPattern = regexp.MustCompile(`^([A-Za-z ]+?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?$`)

// knownLogicalTypes is the fixed enumeration of base types the mapper accepts.
var knownLogicalTypes = map[string]bool{
	"TEXT": true, "INTEGER": true, "INT": true, "BIGINT": true,
	"SMALLINT": true, "TINYINT": true, "MEDIUMINT": true,
	"REAL": true, "DOUBLE": true, "FLOAT": true, "BLOB": true,
	"BOOLEAN": true, "DATE": true, "TIMESTAMP": true, "DATETIME": true,
	"VARCHAR": true, "CHAR": true, "DECIMAL": true, "NUMERIC": true,
	"JSON": true,
}

// lengthParameterized lists base types that carry a length or precision.
// Absence of the parameter defaults rather than failing: 255 for string
// types, (10,0) for decimals.
var lengthParameterized = map[string]bool{
	"VARCHAR": true, "CHAR": true, "DECIMAL": true, "NUMERIC": true,
}

// parseLogicalType parses "VARCHAR(150)", "decimal(10,2)", "integer" into a
// logicalType, applying length defaults for parameterized types.
func parseLogicalType(raw string) (logicalType, error) {
	m := typeSpecPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return logicalType{}, fmt.Errorf("cannot parse type %q", raw)
	}
	lt := logicalType{Base: strings.ToUpper(strings.TrimSpace(m[1]))}
	if !knownLogicalTypes[lt.Base] {
		return logicalType{}, fmt.Errorf("unknown logical type %q", lt.Base)
	}
	if m[2] != "" {
		lt.Length, _ = strconv.Atoi(m[2])
		lt.HasLength = true
	}
	if m[3] != "" {
		lt.Scale, _ = strconv.Atoi(m[3])
	}
	if lengthParameterized[lt.Base] && !lt.HasLength {
		switch lt.Base {
		case "VARCHAR", "CHAR":
			lt.Length = 255
		case "DECIMAL", "NUMERIC":
			lt.Length = 10
		}
		lt.HasLength = true
	}
	return lt, nil
}

// render returns the type with its parameters, e.g. "VARCHAR(255)".
func (lt logicalType) render() string {
	if !lengthParameterized[lt.Base] {
		return lt.Base
	}
	if lt.Scale > 0 {
		return fmt.Sprintf("%s(%d,%d)", lt.Base, lt.Length, lt.Scale)
	}
	return fmt.Sprintf("%s(%d)", lt.Base, lt.Length)
}

// autoincrementEligible lists, per handler, the base types autoincrement may
// be requested on. PostgreSQL expresses autoincrement as SERIAL and accepts
// the integer family; MySQL takes its full int family; SQLite and anything
// else take the generic int family.
func autoincrementEligible(handlerName, base string) bool {
	switch handlerName {
	case "postgres":
		switch base {
		case "INTEGER", "INT", "BIGINT", "SMALLINT":
			return true
		}
	case "mysql":
		switch base {
		case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT":
			return true
		}
	default:
		switch base {
		case "INTEGER", "INT", "BIGINT", "SMALLINT", "TINYINT":
			return true
		}
	}
	return false
}

// validateColumns checks a full column list against the handler's rules:
// identifier grammar, single primary key, autoincrement eligibility, and the
// non-PK-autoincrement capability gate. Specs are normalized in place.
func validateColumns(cols []ColumnSpec, desc HandlerDescriptor) error {
	pkSeen := ""
	for i := range cols {
		c := &cols[i]
		if err := validIdent("column", c.Name); err != nil {
			return err
		}
		c.normalize()

		lt, err := parseLogicalType(c.Type)
		if err != nil {
			return &UnsupportedColumnConfigurationError{Column: c.Name, Reason: err.Error()}
		}
		c.Type = lt.render()

		if c.PrimaryKey {
			if pkSeen != "" {
				return &UnsupportedColumnConfigurationError{
					Column: c.Name,
					Reason: fmt.Sprintf("table already has primary key column %q", pkSeen),
				}
			}
			pkSeen = c.Name
		}

		if c.Autoincrement {
			if !autoincrementEligible(desc.Name, lt.Base) {
				return &UnsupportedColumnConfigurationError{
					Column: c.Name,
					Reason: fmt.Sprintf("autoincrement is not supported on type %s for handler %s", lt.Base, desc.Name),
				}
			}
			if !c.PrimaryKey && !desc.Capabilities.NonPKAutoincrement {
				return &UnsupportedColumnConfigurationError{
					Column: c.Name,
					Reason: fmt.Sprintf("handler %s only supports autoincrement on the primary key column", desc.Name),
				}
			}
		}

		if c.CheckConstraint != "" && !desc.Capabilities.CheckConstraints {
			return &UnsupportedColumnConfigurationError{
				Column: c.Name,
				Reason: fmt.Sprintf("handler %s does not support CHECK constraints", desc.Name),
			}
		}
	}
	return nil
}

// columnDDL renders one ColumnSpec as a native column definition for the
// given dialect. The spec must already be validated and normalized.
func columnDDL(c ColumnSpec, d sqlDialect) (string, error) {
	lt, err := parseLogicalType(c.Type)
	if err != nil {
		return "", &UnsupportedColumnConfigurationError{Column: c.Name, Reason: err.Error()}
	}

	var b strings.Builder
	b.WriteString(d.QuoteIdent(c.Name))
	b.WriteByte(' ')
	b.WriteString(d.NativeType(lt, c.Autoincrement))

	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if auto := d.AutoincrementClause(); c.Autoincrement && auto != "" {
		b.WriteByte(' ')
		b.WriteString(auto)
	}
	if c.NotNull && !c.PrimaryKey {
		b.WriteString(" NOT NULL")
	}
	if c.Unique && !c.PrimaryKey {
		b.WriteString(" UNIQUE")
	}
	if c.Default != "" {
		fmt.Fprintf(&b, " DEFAULT %s", c.Default)
	}
	if c.CheckConstraint != "" {
		fmt.Fprintf(&b, " CHECK (%s)", c.CheckConstraint)
	}
	return b.String(), nil
}

var columnDDLPattern = regexp.MustCompile(
	`^\s*["` + "`" + `]?([A-Za-z][A-Za-z0-9_]*)["` + "`" + `]?\s+([A-Za-z]+(?:\(\s*\d+\s*(?:,\s*\d+\s*)?\))?)(.*)$`)

// parseColumnDDL parses one native column definition line back into a
// ColumnSpec. It understands the subset of DDL this engine itself emits plus
// common spellings (SERIAL, AUTO_INCREMENT, AUTOINCREMENT).
func parseColumnDDL(raw string) (ColumnSpec, error) {
	line := strings.TrimSuffix(strings.TrimSpace(raw), ",")
	m := columnDDLPattern.FindStringSubmatch(line)
	if m == nil {
		return ColumnSpec{}, fmt.Errorf("cannot parse column definition %q", raw)
	}

	spec := ColumnSpec{Name: m[1]}
	typeToken := strings.TrimSpace(m[2])
	rest := strings.ToUpper(m[3])

	switch upper := strings.ToUpper(typeToken); upper {
	case "SERIAL":
		spec.Type = "INTEGER"
		spec.Autoincrement = true
	case "BIGSERIAL":
		spec.Type = "BIGINT"
		spec.Autoincrement = true
	case "SMALLSERIAL":
		spec.Type = "SMALLINT"
		spec.Autoincrement = true
	default:
		lt, err := parseLogicalType(typeToken)
		if err != nil {
			return ColumnSpec{}, err
		}
		spec.Type = lt.render()
	}

	spec.PrimaryKey = strings.Contains(rest, "PRIMARY KEY")
	spec.NotNull = strings.Contains(rest, "NOT NULL")
	spec.Unique = strings.Contains(rest, "UNIQUE")
	if strings.Contains(rest, "AUTO_INCREMENT") || strings.Contains(rest, "AUTOINCREMENT") {
		spec.Autoincrement = true
	}
	if i := strings.Index(rest, "CHECK ("); i >= 0 {
		expr := m[3][i+len("CHECK ("):]
		if j := strings.LastIndex(expr, ")"); j >= 0 {
			spec.CheckConstraint = strings.TrimSpace(expr[:j])
		}
	}
	spec.normalize()
	return spec, nil
}
