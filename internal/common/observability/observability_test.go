package observability

import (
	"context"
	"testing"
	"time"

	"clientatech-agent/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValueIsNoOp(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordQueryProcessed(context.Background(), "RISK", "answered", false)
		o.RecordQueryDuration(context.Background(), time.Second, "answered")
		o.RecordRows(context.Background(), "RISK", 3)
		o.Shutdown()
	})

	empty := &Observability{}
	assert.NotPanics(t, func() {
		empty.RecordQueryProcessed(context.Background(), "RISK", "answered", true)
	})
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(config.TracingConfig{Enabled: false}, "clientatech-agent", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := Tracer("test").Start(context.Background(), "noop")
	span.End()
}
