//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/mentor/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestPostgresBackend_Integration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	b := NewPostgresBackend(pool)
	defer b.Close()

	exerciseBackend(t, b)
	require.NoError(t, testutil.TruncateSnapshots(ctx, pool))
}

func TestS3Backend_Integration(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	b, err := NewS3Backend(ctx, S3Config{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "mentor-test",
		Prefix:          "snapshots",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, b.EnsureBucket(ctx))
	require.NoError(t, b.EnsureBucket(ctx), "idempotent")

	exerciseBackend(t, b)
}
