package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNeo4jClient_MissingURI(t *testing.T) {
	_, err := NewNeo4jClient(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrMissingURI)
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{"name": "Suresh Patil", "count": int64(3), "weight": 2.0, "other": true}
	assert.Equal(t, "Suresh Patil", rec.String("name"))
	assert.Equal(t, "", rec.String("count"))
	assert.Equal(t, 3, rec.Int("count"))
	assert.Equal(t, 2, rec.Int("weight"))
	assert.Equal(t, 0, rec.Int("other"))
}

func TestMemoryClient_ReplaysResults(t *testing.T) {
	mem := NewMemoryClient()
	mem.PushReadResult(Result{Records: []Record{{"mobile": "9876543210"}}})
	ctx := context.Background()

	res, err := mem.ExecuteRead(ctx, "MATCH (p) RETURN p.mobile AS mobile", map[string]any{"x": 1})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	res, err = mem.ExecuteRead(ctx, "MATCH (p) RETURN p", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Len(t, mem.ReadCalls(), 2)

	boom := errors.New("unavailable")
	mem.WithError(boom)
	_, err = mem.ExecuteWrite(ctx, "CREATE (p)", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, mem.WriteCalls())
}
