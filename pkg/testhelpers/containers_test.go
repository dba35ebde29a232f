//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_FixtureLoaded(t *testing.T) {
	testDB := GetTestDB(t)

	ctx := context.Background()

	var tableCount int
	err := testDB.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'").
		Scan(&tableCount)
	if err != nil {
		t.Fatalf("failed to count tables: %v", err)
	}

	if tableCount != 4 {
		t.Errorf("expected 4 tables in fixture schema, got %d", tableCount)
	}
}
