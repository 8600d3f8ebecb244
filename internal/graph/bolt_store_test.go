package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph", "featurekg.db")

	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	f := seed(t, s)
	require.NoError(t, s.DeleteRelationship(ctx, f.edge))
	require.NoError(t, s.UpdateNode(ctx, f.face2, []string{LabelFace}, Properties{"face_no": String("20")}))
	require.NoError(t, s.Close(ctx))

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close(ctx)
	require.NoError(t, reopened.HealthCheck(ctx))

	nodes, err := reopened.AllNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 5)
	assert.Equal(t, f.repo, nodes[0].ID, "creation order survives reopen")

	rels, err := reopened.AllRelationships(ctx)
	require.NoError(t, err)
	assert.Len(t, rels, 4)

	n, ok, err := reopened.GetNode(ctx, f.face2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "20", n.Properties.Get("face_no").String())

	// New ids never collide with restored ones
	id, err := reopened.CreateNode(ctx, []string{"Hole"}, Properties{})
	require.NoError(t, err)
	for _, existing := range nodes {
		assert.NotEqual(t, existing.ID, id)
	}
}
