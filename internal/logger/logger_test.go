package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug")
	log.WithPlan("plan-1").WithFields(map[string]any{"op": "lock"}).WithError(errors.New("boom")).Warn("rolled back")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "plan-1", entry["plan_id"])
	require.Equal(t, "lock", entry["op"])
	require.Equal(t, "boom", entry["error"])
	require.Equal(t, "warning", entry["level"])
	require.Equal(t, "rolled back", entry["msg"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "warn")
	log.Info("hidden")
	require.Zero(t, buf.Len())
	log.Error("shown")
	require.NotZero(t, buf.Len())
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	require.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
	require.Equal(t, logrus.DebugLevel, ParseLevel(" debug "))
}

func TestDiscardDropsOutput(t *testing.T) {
	require.NotPanics(t, func() { Discard().Error("nothing") })
}
