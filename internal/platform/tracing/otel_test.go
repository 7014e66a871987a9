package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"docchat/internal/config"
	"docchat/internal/platform/logger"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown := Init(context.Background(), logger.NewNop(), config.AppConfig{Name: "docchat"}, config.OTelConfig{})
	assert.NoError(t, shutdown(context.Background()))
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 1.0, clampRatio(3))
	assert.Equal(t, 0.25, clampRatio(0.25))
}
