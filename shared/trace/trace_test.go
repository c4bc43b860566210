package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTrace(t *testing.T) {
	buf := &bytes.Buffer{}

	tp, err := InitTrace(buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(testContext(t), "resizeImage")
	span.End()

	require.NoError(t, tp.Shutdown(testContext(t)))
	assert.Contains(t, buf.String(), `"Name":"resizeImage"`)
}
