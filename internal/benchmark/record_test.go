package benchmark

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewResultRecordThroughput(t *testing.T) {
	rec := NewResultRecord("Code Gen", "Write Function", 2*time.Second, 40)
	assert.Equal(t, 20.0, rec.TokensPerSecond)
	assert.Equal(t, 40, rec.TokenCount)
	assert.Equal(t, 2.0, rec.ElapsedSeconds())
	assert.False(t, rec.Failed)
}

func TestNewResultRecordGuardsNonPositiveElapsed(t *testing.T) {
	for _, elapsed := range []time.Duration{0, -time.Second} {
		rec := NewResultRecord("Benchmark", "Speed: Short", elapsed, 10)
		assert.Zero(t, rec.TokensPerSecond, "elapsed %s", elapsed)
		assert.Equal(t, 10, rec.TokenCount)
	}
}

func TestNewResultRecordClampsNegativeTokens(t *testing.T) {
	rec := NewResultRecord("Chat", "Chat", time.Second, -5)
	assert.Zero(t, rec.TokenCount)
	assert.Zero(t, rec.TokensPerSecond)
}

func TestDegradedRecord(t *testing.T) {
	rec := DegradedRecord("Reasoning", "Reasoning", errors.New("model not found"))
	assert.True(t, rec.Failed)
	assert.Equal(t, "model not found", rec.Error)
	assert.Zero(t, rec.Elapsed)
	assert.Zero(t, rec.TokenCount)
	assert.Zero(t, rec.TokensPerSecond)
}
