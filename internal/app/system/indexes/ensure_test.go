package indexes_test

import (
	"testing"

	"github.com/dalemusser/stratashield/internal/app/system/indexes"
	"github.com/dalemusser/stratashield/internal/testutil"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll once.
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll() error = %v", err)
	}
}
