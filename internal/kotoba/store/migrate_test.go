package store

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	ms, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	for i, m := range ms {
		if m.version != i+1 {
			t.Errorf("migration %d has version %d; versions must be contiguous", i, m.version)
		}
		if strings.TrimSpace(m.sql) == "" {
			t.Errorf("migration %04d_%s is empty", m.version, m.name)
		}
	}
}

func TestLoadMigrations_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0010_later.sql":  {Data: []byte("SELECT 10;")},
		"migrations/0002_second.sql": {Data: []byte("SELECT 2;")},
		"migrations/0001_first.sql":  {Data: []byte("SELECT 1;")},
	}
	ms, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	var got []string
	for _, m := range ms {
		got = append(got, m.name)
	}
	if strings.Join(got, ",") != "first,second,later" {
		t.Errorf("order = %v", got)
	}
}

func TestLoadMigrations_Invalid(t *testing.T) {
	tests := map[string]fstest.MapFS{
		"no description": {"migrations/0001.sql": {Data: []byte("x")}},
		"not a number":   {"migrations/abc_init.sql": {Data: []byte("x")}},
		"duplicate": {
			"migrations/0001_a.sql": {Data: []byte("x")},
			"migrations/001_b.sql":  {Data: []byte("x")},
		},
	}
	for name, fsys := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadMigrations(fsys); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
