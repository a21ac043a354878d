package logger

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/marketplace-backend/internal/config"
)

func TestNewAppliesFormatAndLevel(t *testing.T) {
	log := New(config.LoggingConfig{Level: "warn", Format: "json"})
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = New(config.LoggingConfig{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestFromContext(t *testing.T) {
	base := Discard()
	entry := base.WithField("request_id", "abc")

	ctx := WithContext(context.Background(), entry)
	assert.Same(t, entry, FromContext(ctx, base))
	assert.Same(t, base, FromContext(context.Background(), base))
}
