package components

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/abcfe/abcfe-metadata/internal/dashboard/styles"
)

const zapTimeLayout = "2006-01-02T15:04:05.000Z0700"

// LogViewer는 저장소 서버 로그 파일 뷰어
type LogViewer struct {
	logPath     string // 날짜 접미사를 뺀 로그 경로 (LogInfo.Path)
	lines       []LogLine
	maxLines    int
	lastModTime time.Time
}

// LogLine은 파싱된 로그 라인
type LogLine struct {
	Time    string
	Level   string
	Message string
	Fields  string // logger.With 로 붙은 필드, "key=value" 나열
	Raw     string
}

// zap 헬퍼가 본문을 담는 키
var bodyKeys = []string{"Info", "Debug", "Warn", "Err"}

// 본문, 필드 어디에도 넣지 않는 zap 기본 키
var zapKeys = map[string]bool{
	"level": true, "date": true, "logger": true, "msg": true,
	"caller": true, "stacktrace": true,
}

// NewLogViewer는 새 로그 뷰어 생성
func NewLogViewer(logPath string, maxLines int) *LogViewer {
	return &LogViewer{
		logPath:  logPath,
		maxLines: maxLines,
		lines:    make([]LogLine, 0),
	}
}

// GetLogPath는 오늘 날짜의 로그 파일 경로 반환
func (lv *LogViewer) GetLogPath() string {
	return fmt.Sprintf("%s_%s.log", lv.logPath, time.Now().Format("2006-01-02"))
}

// Refresh는 로그 파일을 다시 읽음
func (lv *LogViewer) Refresh() error {
	logPath := lv.GetLogPath()

	info, err := os.Stat(logPath)
	if err != nil {
		lv.lines = []LogLine{{
			Level:   "INFO",
			Message: fmt.Sprintf("로그 파일 없음: %s", logPath),
		}}
		return nil
	}

	// 수정 시간이 같으면 스킵
	if info.ModTime().Equal(lv.lastModTime) {
		return nil
	}
	lv.lastModTime = info.ModTime()

	file, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer file.Close()

	// 마지막 maxLines만 순환 버퍼로 유지
	tail := make([]LogLine, 0, lv.maxLines)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if len(tail) == lv.maxLines {
			tail = append(tail[:0], tail[1:]...)
		}
		tail = append(tail, lv.parseLine(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	lv.lines = tail
	return nil
}

// parseLine은 zap JSON 로그 한 줄을 해석. JSON이 아니면 원문을 그대로 보여줌
func (lv *LogViewer) parseLine(line string) LogLine {
	result := LogLine{Raw: line, Level: "INFO"}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		result.Message = truncate(line, 80)
		return result
	}

	if level, ok := entry["level"].(string); ok && level != "" {
		result.Level = strings.ToUpper(level)
	}

	if date, ok := entry["date"].(string); ok {
		if t, err := time.Parse(zapTimeLayout, date); err == nil {
			result.Time = t.Format("15:04:05")
		} else {
			result.Time = date
		}
	}

	for _, key := range bodyKeys {
		if body, ok := entry[key].(string); ok {
			result.Message = body
			break
		}
	}
	if result.Message == "" {
		// logger.With(...).Info("msg") 처럼 본문 키 없이 찍힌 줄
		result.Message, _ = entry["msg"].(string)
	}

	var fields []string
	for key, value := range entry {
		if zapKeys[key] || isBodyKey(key) {
			continue
		}
		fields = append(fields, fmt.Sprintf("%s=%v", key, value))
	}
	sort.Strings(fields)
	result.Fields = strings.Join(fields, " ")

	return result
}

func isBodyKey(key string) bool {
	for _, k := range bodyKeys {
		if k == key {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// GetLines는 현재 로그 라인들 반환
func (lv *LogViewer) GetLines() []LogLine {
	return lv.lines
}

// Render는 로그 뷰어를 문자열로 렌더링
func (lv *LogViewer) Render(width int) string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render("LOGS"))
	b.WriteString("\n")

	if len(lv.lines) == 0 {
		b.WriteString(styles.MutedStyle.Render("  로그가 없습니다"))
		return b.String()
	}

	maxMsgLen := width - 20
	if maxMsgLen < 20 {
		maxMsgLen = 20
	}

	for _, line := range lv.lines {
		timeStr := line.Time
		if timeStr == "" {
			timeStr = strings.Repeat(" ", 8)
		}

		fmt.Fprintf(&b, "  %s %s %s\n",
			styles.MutedStyle.Render(timeStr),
			styles.LogLevelStyle(line.Level).Render(fmt.Sprintf("%-5s", line.Level)),
			truncate(line.Message, maxMsgLen)+fieldSuffix(line.Fields))
	}

	return b.String()
}

func fieldSuffix(fields string) string {
	if fields == "" {
		return ""
	}
	return " " + styles.MutedStyle.Render(fields)
}
