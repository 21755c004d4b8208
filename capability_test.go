package main

import (
	"reflect"
	"testing"
)

func TestDescribeHandler(t *testing.T) {
	d, err := describeHandler("postgres")
	if err != nil {
		t.Fatalf("describeHandler(postgres) error: %v", err)
	}
	if d.DBType != dbTypeSQL || !d.Capabilities.NonPKAutoincrement {
		t.Errorf("postgres descriptor = %+v", d)
	}

	if _, err := describeHandler("oracle"); err == nil {
		t.Fatal("unknown handler should error")
	}
}

func TestHandlersByTypeSorted(t *testing.T) {
	if got := handlersByType(dbTypeSQL); !reflect.DeepEqual(got, []string{"mysql", "postgres", "sqlite"}) {
		t.Errorf("handlersByType(sql) = %v", got)
	}
	if got := handlersByType(dbTypeNoSQL); !reflect.DeepEqual(got, []string{"jsonstore"}) {
		t.Errorf("handlersByType(nosql) = %v", got)
	}
}

func TestSupportsOperation(t *testing.T) {
	sqlite := handlerRegistry["sqlite"]
	if !supportsOperation(sqlite, "triggers") {
		t.Error("sqlite supports triggers")
	}
	if supportsOperation(sqlite, "procedures") {
		t.Error("sqlite does not support procedures")
	}
	if supportsOperation(sqlite, "validation_rules") {
		t.Error("sqlite does not support validation rules")
	}
	// Ungated operations are supported everywhere.
	if !supportsOperation(sqlite, "export") {
		t.Error("ungated operations should default to supported")
	}

	jsonstore := handlerRegistry["jsonstore"]
	if !supportsOperation(jsonstore, "validation_rules") {
		t.Error("jsonstore supports validation rules")
	}
	if supportsOperation(jsonstore, "triggers") {
		t.Error("jsonstore does not support triggers")
	}
}

func TestEveryRegisteredHandlerHasAnAdapter(t *testing.T) {
	cfg := defaultConfig()
	cfg.DataDir = t.TempDir()
	for name := range handlerRegistry {
		if _, err := newHandler(name, cfg, nil); err != nil {
			t.Errorf("newHandler(%s) error: %v", name, err)
		}
	}
}
