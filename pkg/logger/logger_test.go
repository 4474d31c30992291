package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() {
		Log.SetLevel(logrus.InfoLevel)
		logrus.SetLevel(logrus.InfoLevel)
	})

	InitLogger("debug")
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	InitLogger("not-a-level")
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())

	_, isJSON := Log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}
