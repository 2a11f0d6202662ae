package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dkeye/dicetable/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// Needs a reachable server, e.g. DICEROOM_TEST_MONGO_URI=mongodb://localhost:27017.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("DICEROOM_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DICEROOM_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := fmt.Sprintf("dicetable_test_%d", time.Now().UnixNano())
	s, err := Open(ctx, uri, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.collection.Database().Drop(context.Background())
		_ = s.Close()
	})

	storetest.Run(t, s)
}
