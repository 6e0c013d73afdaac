// Package testutil holds shared test fixtures: a throwaway MongoDB database
// per test, an in-memory event store and HTTP helpers.
package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	// DefaultTestDBURI is used when STRATASHIELD_TEST_MONGO_URI is unset.
	DefaultTestDBURI = "mongodb://localhost:27017"
	// TestDBName prefixes every per-test database.
	TestDBName = "stratashield_test"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error

	unsafeDBChars = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

func testDBURI() string {
	if uri := os.Getenv("STRATASHIELD_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return DefaultTestDBURI
}

// sharedClient connects once per test binary.
func sharedClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		opts := options.Client().
			ApplyURI(testDBURI()).
			SetMaxPoolSize(32).
			SetConnectTimeout(3 * time.Second).
			SetServerSelectionTimeout(3 * time.Second)

		client, clientErr = mongo.Connect(ctx, opts)
		if clientErr == nil {
			clientErr = client.Ping(ctx, nil)
		}
	})
	return client, clientErr
}

// SetupTestDB returns an empty database, indexed like production, that is
// dropped when the test ends. The test is skipped when MongoDB is unreachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", testDBURI(), err)
	}

	db := c.Database(dbNameFor(t.Name()))

	ctx, cancel := TestContext()
	defer cancel()

	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database on cleanup: %v", err)
		}
	})
	return db
}

// dbNameFor keeps database names under MongoDB's 63-byte limit. Truncated
// names get a hash suffix so long subtest names stay distinct.
func dbNameFor(testName string) string {
	const maxSuffix = 63 - len(TestDBName) - 1

	suffix := unsafeDBChars.ReplaceAllString(testName, "_")
	if len(suffix) > maxSuffix {
		h := fnv.New32a()
		_, _ = h.Write([]byte(testName))
		tag := fmt.Sprintf("_%08x", h.Sum32())
		suffix = suffix[:maxSuffix-len(tag)] + tag
	}
	return TestDBName + "_" + suffix
}

// TestContext bounds a test's database calls.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
