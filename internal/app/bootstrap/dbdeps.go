// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratashield/internal/app/store/accesslogs"
	"github.com/dalemusser/stratashield/internal/app/store/identities"
	"github.com/dalemusser/stratashield/internal/app/store/loginlogs"
	"github.com/dalemusser/stratashield/internal/app/store/securityevents"
	"github.com/dalemusser/stratashield/internal/app/store/storeutil"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. Stores are
// built once here and injected into the engines; nothing reaches for a
// package-level database handle.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Guard is the circuit breaker shared by every event store.
	Guard *storeutil.Guard

	// Event store collections
	LoginLogs      *loginlogs.Store
	SecurityEvents *securityevents.Store
	AccessLogs     *accesslogs.Store

	// Identities reads the accounts collection (read-only).
	Identities *identities.Store
}
