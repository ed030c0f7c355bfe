package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesFileLog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	LogInfo("balance changed", zap.String("address", "0xabc"), zap.Int64("duration_ms", 12))
	LogError("append failed", zap.Error(errors.New("disk full")))
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "INFO balance changed")
	assert.Contains(t, content, `"address":"0xabc"`)
	assert.Contains(t, content, "ERROR append failed")
	assert.Contains(t, content, `"error":"disk full"`)
}

func TestConsoleSuffix(t *testing.T) {
	suffix := consoleSuffix([]zap.Field{
		zap.String("address", "0xabc"),
		zap.Int64("duration_ms", 42),
		zap.Error(errors.New("boom")),
	})
	assert.Equal(t, " 0xabc (42ms): boom", suffix)
}

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	assert.Len(t, id, 16)
	assert.NotEqual(t, id, GenerateRequestID())
}
