package observability

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestRecordIngest(t *testing.T) {
	c := NewCollector("kg")
	c.RecordIngest("expansion", 5, 2, 4, 1, 3)
	c.RecordIngest("expansion", 1, 0, 0, 0, 0)

	assert.Equal(t, 6.0, testutil.ToFloat64(c.NodesAccepted.WithLabelValues("expansion")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.NodesSkipped.WithLabelValues("expansion")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.EdgesDropped.WithLabelValues("expansion")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.NodesAccepted.WithLabelValues("extraction")))
}

func TestRecordRoundAndCall(t *testing.T) {
	c := NewCollector("kg")
	c.RecordRound("progress")
	c.RecordRound("empty")
	c.RecordRound("progress")
	c.RecordCall("generate", 2*time.Second, nil)
	c.RecordCall("generate", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Rounds.WithLabelValues("progress")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.CallDuration))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordIngest("extraction", 1, 1, 1, 1, 1)
	c.RecordRound("failed")
	c.RecordCall("generate", time.Second, nil)
	assert.Nil(t, c.Registry())
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector("kg")
	c.RecordRound("empty")

	path := filepath.Join(t.TempDir(), "kg.prom")
	require.NoError(t, c.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `kg_expansion_rounds_total{outcome="empty"} 1`)
}

func TestInitTracingExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracing(&buf, "kg-course-test", nil)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "expand.round")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.True(t, strings.Contains(buf.String(), "expand.round"))
}
