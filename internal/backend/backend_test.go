package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"kakeibo/internal/config"
	"kakeibo/internal/core"
)

func TestOpen_Memory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_expense_categories.txt"), []byte("Pets\nGifts\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := Open(context.Background(), Options{Type: Memory, DataDir: dir}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	if b.Queue != nil {
		t.Error("memory backend should not expose a sync queue")
	}
	cats, err := b.Store.ListCategories(context.Background(), core.Expense)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) == 0 || cats[0] != "Pets" {
		t.Errorf("expected seeded categories first, got %v", cats)
	}
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kakeibo.db")
	b, err := Open(context.Background(), Options{Type: SQLite, SQLitePath: path}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.Queue == nil {
		t.Fatal("sqlite backend should expose a sync queue")
	}
	if err := b.Store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpen_Invalid(t *testing.T) {
	for name, opts := range map[string]Options{
		"unknown type":        {Type: "sheets"},
		"sqlite without path": {Type: SQLite},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Open(context.Background(), opts, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseType(t *testing.T) {
	tests := map[string]Type{"sqlite": SQLite, " Memory ": Memory}
	for in, want := range tests {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Errorf("ParseType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseType("postgres"); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(&config.Config{DataBackend: "memory"})
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	if opts.Type != Memory || opts.DataDir != "data" {
		t.Errorf("unexpected options %+v", opts)
	}
	if _, err := OptionsFromConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := OptionsFromConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
