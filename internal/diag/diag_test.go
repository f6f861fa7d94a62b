package diag

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorDedupsByKindAndKey(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(slog.New(slog.NewTextHandler(&buf, nil)))

	assert.True(t, c.Add(Diagnostic{Kind: MissingReference, Stage: "resolve.orders", Key: "B00X"}))
	assert.False(t, c.Add(Diagnostic{Kind: MissingReference, Stage: "resolve.inventory", Key: "B00X"}))
	assert.True(t, c.Add(Diagnostic{Kind: MissingLimit, Stage: "liquidation", Key: "B00X"}))

	require.Len(t, c.All(), 2)
	assert.Equal(t, 1, c.Count(MissingReference))
	assert.Equal(t, map[Kind]int{MissingReference: 1, MissingLimit: 1}, c.Counts())
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("level=WARN")))
}

func TestCollectorAllReturnsCopy(t *testing.T) {
	c := NewCollector(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	c.Add(Diagnostic{Kind: MalformedRow, Key: "orders:3"})

	all := c.All()
	all[0].Key = "changed"
	assert.Equal(t, "orders:3", c.All()[0].Key)
}

func TestResultAddf(t *testing.T) {
	var r Result[int]
	assert.False(t, r.Degraded())

	r.Addf(ZeroDenominator, "allocate", "US/2019-01", "category total is %d", 0)
	require.True(t, r.Degraded())
	assert.Equal(t, "category total is 0", r.Diagnostics[0].Message)
	assert.Equal(t, "zero_denominator [allocate] US/2019-01: category total is 0", r.Diagnostics[0].String())
}
