package components

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	lv := NewLogViewer("", 10)

	line := lv.parseLine(`{"level":"WARN","date":"2025-01-03T12:34:56.789+0900","logger":"abcfe-metadata","msg":"warn","Warn":"metadata put rejected, retrying once"}`)
	require.Equal(t, "WARN", line.Level)
	require.Equal(t, "12:34:56", line.Time)
	require.Equal(t, "metadata put rejected, retrying once", line.Message)

	// logger.With 필드는 본문 뒤에 정렬되어 붙는다
	stored := lv.parseLine(`{"level":"INFO","date":"2025-01-03T12:00:00.000Z","msg":"metadata stored","writes":2,"address":"1abc","type":4}`)
	require.Equal(t, "metadata stored", stored.Message)
	require.Equal(t, "address=1abc type=4 writes=2", stored.Fields)

	plain := lv.parseLine(strings.Repeat("x", 100))
	require.Equal(t, "INFO", plain.Level)
	require.True(t, strings.HasSuffix(plain.Message, "..."))
}

func TestRefreshKeepsTail(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "metadata")
	lv := NewLogViewer(prefix, 3)

	// 파일이 없으면 안내 한 줄
	require.NoError(t, lv.Refresh())
	require.Len(t, lv.GetLines(), 1)

	var b strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, `{"level":"INFO","msg":"info","Info":"line %d"}`+"\n", i)
	}
	path := fmt.Sprintf("%s_%s.log", prefix, time.Now().Format("2006-01-02"))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0600))

	require.NoError(t, lv.Refresh())
	lines := lv.GetLines()
	require.Len(t, lines, 3)
	require.Equal(t, "line 2", lines[0].Message)
	require.Equal(t, "line 4", lines[2].Message)
}
