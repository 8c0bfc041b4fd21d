package main

import (
	"testing"
)

func TestCollect_filtersAndOrders(t *testing.T) {
	names := []string{
		"002_add_index.up.sql",
		"001_ledger_blocks.down.sql",
		"001_ledger_blocks.up.sql",
		"README.md",
		"002_add_index.down.sql",
	}

	up, err := collect(names, ".up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(up) != 2 || up[0].File != "001_ledger_blocks.up.sql" || up[1].Version != 2 {
		t.Errorf("up: %+v", up)
	}

	down, err := collect(names, ".down.sql")
	if err != nil {
		t.Fatal(err)
	}
	m, ok := find(down, 2)
	if !ok || m.File != "002_add_index.down.sql" {
		t.Errorf("find(2): %+v %v", m, ok)
	}
	if _, ok := find(down, 7); ok {
		t.Error("find(7) should miss")
	}
}

func TestCollect_rejectsBadNames(t *testing.T) {
	cases := [][]string{
		{"init.up.sql"},
		{"abc_init.up.sql"},
		{"001_a.up.sql", "1_b.up.sql"},
	}
	for _, names := range cases {
		if _, err := collect(names, ".up.sql"); err == nil {
			t.Errorf("collect(%v): expected error", names)
		}
	}
}

func TestVersionFromFile(t *testing.T) {
	v, err := versionFromFile("001_ledger_blocks.up.sql")
	if err != nil || v != 1 {
		t.Errorf("got %d, %v", v, err)
	}
}
