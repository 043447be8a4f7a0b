package panoptic

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/postwall/publisher"
)

func TestRunReportMessage(t *testing.T) {
	report := &publisher.RunReport{
		RunId:         "run-1",
		Trigger:       publisher.TriggerScheduled,
		Stats:         publisher.RunStats{Fetched: 3, New: 2, Duplicates: 1, HandlesProcessed: 1},
		FailedHandles: []string{"bob"},
		StartedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Duration:      2 * time.Second,
	}
	msg, err := NewRunReportMessage(report)
	require.Nil(t, err)
	assert.NotEmpty(t, msg.UUID)

	decoded, err := DecodeRunReport(msg)
	require.Nil(t, err)
	assert.Empty(t, cmp.Diff(report, decoded))
}
