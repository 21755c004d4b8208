package main

import "sort"

// Capabilities is the static feature set of one handler. Every gate in the
// engine checks these flags before any driver call is made, so unsupported
// operations fail fast instead of surfacing as engine errors.
type Capabilities struct {
	NonPKAutoincrement bool `json:"supports_non_pk_autoincrement"`
	Partitions         bool `json:"supports_partitions"`
	Triggers           bool `json:"supports_triggers"`
	Procedures         bool `json:"supports_procedures"`
	Users              bool `json:"supports_users"`
	CheckConstraints   bool `json:"supports_check_constraints"`
	ValidationRules    bool `json:"supports_validation_rules"`
	Credentials        bool `json:"supports_credentials"`
}

// HandlerDescriptor identifies one registered engine adapter. Descriptors are
// immutable: built once from the registry table at startup, never mutated.
type HandlerDescriptor struct {
	Name         string       `json:"name"`
	DBType       string       `json:"db_type"` // "sql" or "nosql"
	Capabilities Capabilities `json:"capabilities"`
}

// handlerRegistry is the fixed table of known handlers. Order here is not
// significant; handlersByType sorts for deterministic defaulting.
var handlerRegistry = map[string]HandlerDescriptor{
	"sqlite": {
		Name:   "sqlite",
		DBType: dbTypeSQL,
		Capabilities: Capabilities{
			NonPKAutoincrement: false,
			Partitions:         false,
			Triggers:           true,
			Procedures:         false,
			Users:              false,
			CheckConstraints:   true,
			Credentials:        false,
		},
	},
	"mysql": {
		Name:   "mysql",
		DBType: dbTypeSQL,
		Capabilities: Capabilities{
			NonPKAutoincrement: false,
			Partitions:         true,
			Triggers:           true,
			Procedures:         true,
			Users:              true,
			CheckConstraints:   true,
			Credentials:        true,
		},
	},
	"postgres": {
		Name:   "postgres",
		DBType: dbTypeSQL,
		Capabilities: Capabilities{
			NonPKAutoincrement: true,
			Partitions:         true,
			Triggers:           true,
			Procedures:         true,
			Users:              true,
			CheckConstraints:   true,
			Credentials:        true,
		},
	},
	"jsonstore": {
		Name:   "jsonstore",
		DBType: dbTypeNoSQL,
		Capabilities: Capabilities{
			NonPKAutoincrement: false,
			Partitions:         false,
			Triggers:           false,
			Procedures:         false,
			Users:              false,
			CheckConstraints:   false,
			ValidationRules:    true,
			Credentials:        false,
		},
	},
}

const (
	dbTypeSQL   = "sql"
	dbTypeNoSQL = "nosql"
)

// describeHandler looks up a handler descriptor by name.
func describeHandler(name string) (HandlerDescriptor, error) {
	d, ok := handlerRegistry[name]
	if !ok {
		return HandlerDescriptor{}, &UnknownHandlerError{Name: name}
	}
	return d, nil
}

// handlersByType returns the names of all registered handlers of the given
// db type, sorted. The first entry is the default switch target when the
// caller names no handler.
func handlersByType(dbType string) []string {
	var names []string
	for name, d := range handlerRegistry {
		if d.DBType == dbType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// supportsOperation maps a named operation to its gating capability.
// Operations absent from the table are supported by every handler.
func supportsOperation(d HandlerDescriptor, op string) bool {
	switch op {
	case "partitions":
		return d.Capabilities.Partitions
	case "triggers":
		return d.Capabilities.Triggers
	case "procedures":
		return d.Capabilities.Procedures
	case "users":
		return d.Capabilities.Users
	case "check_constraints":
		return d.Capabilities.CheckConstraints
	case "validation_rules":
		return d.Capabilities.ValidationRules
	default:
		return true
	}
}
