package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInitRecorderWithoutDatabase(t *testing.T) {
	recorder, err := initRecorder(context.Background(), "", initMetrics(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, noopRecorder{}, recorder)

	report := &RunReport{RunID: "run-1", Status: statusCompleted}
	assert.NoError(t, recorder.RecordRun(context.Background(), report, nil))
	assert.NoError(t, recorder.Close())
}
