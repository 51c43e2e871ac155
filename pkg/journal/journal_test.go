package journal

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCycle(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)

	rec := &CycleRecord{
		AgentID:     "agent-1",
		CycleNumber: 7,
		Pair:        "ETH-USD",
		Outcome:     OutcomeOpened,
		Action:      "buy",
		Confidence:  0.8,
		Balance:     9000,
		ForcedExits: []ForcedExit{
			{PositionID: "p1", Pair: "ETH-USD", Kind: "stop_loss", Price: 2350, PnlPct: -6.3},
		},
	}

	path, err := writer.WriteCycle(rec)
	require.NoError(t, err, "writing a record should succeed")
	assert.FileExists(t, path, "record file should exist")
	assert.False(t, rec.Timestamp.IsZero(), "timestamp should be stamped when absent")

	data, err := os.ReadFile(path)
	require.NoError(t, err, "record file should read back")

	var decoded CycleRecord
	require.NoError(t, json.Unmarshal(data, &decoded), "record file should be valid json")
	assert.Equal(t, OutcomeOpened, decoded.Outcome, "outcome should round-trip")
	assert.Equal(t, "agent-1", decoded.AgentID, "agent id should round-trip")
	require.Len(t, decoded.ForcedExits, 1, "forced exits should round-trip")
	assert.Equal(t, "stop_loss", decoded.ForcedExits[0].Kind, "forced exit kind should round-trip")
}

func TestWriteCycleDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)
	writer.nowFn = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }

	first, err := writer.WriteCycle(&CycleRecord{AgentID: "a", Outcome: OutcomeHold})
	require.NoError(t, err, "first record should write")
	second, err := writer.WriteCycle(&CycleRecord{AgentID: "a", Outcome: OutcomeHold})
	require.NoError(t, err, "second record should write")

	assert.NotEqual(t, first, second, "records within the same second must get distinct files")
}

func TestWriteCycleRejectsBadRecords(t *testing.T) {
	writer := NewWriter(t.TempDir())

	_, err := writer.WriteCycle(nil)
	assert.Error(t, err, "nil record should be rejected")

	_, err = writer.WriteCycle(&CycleRecord{Outcome: OutcomeHold})
	assert.Error(t, err, "record without agent id should be rejected")
}
