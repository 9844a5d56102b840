// Package mongotest starts disposable MongoDB containers for integration tests.
package mongotest

import (
	"context"
	"testing"

	azuramongo "github.com/fjod/azura/internal/mongodb"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

// StartTestDB runs a throwaway mongo:7 container and returns a database on it.
// The container is terminated when the test finishes.
func StartTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := azuramongo.Connect(ctx, uri, "testdb")
	require.NoError(t, err)
	t.Cleanup(func() { _ = azuramongo.Disconnect(ctx, db) })

	return db
}
