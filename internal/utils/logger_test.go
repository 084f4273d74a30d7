package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// initTestLogger 初始化到临时目录,测试结束后恢复零值日志器
func initTestLogger(t *testing.T, level string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "logs")
	config := DefaultLogConfig()
	config.Level = level
	config.LogDir = dir
	config.Compress = false
	config.Quiet = true
	if err := InitLogger(config); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	t.Cleanup(func() {
		Logger = zerolog.Logger{}
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})
	return dir
}

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("读取 %s 失败: %v", name, err)
	}
	return string(content)
}

func TestInitLogger_CreatesDirAndMainLog(t *testing.T) {
	dir := initTestLogger(t, "debug")

	Infof("✅ 接受 [%.3f]: %s", 0.812, "https://example.edu/admissions")
	Debugf("抓取 [深度%d]: %s", 1, "https://example.edu/tuition")

	content := readLog(t, dir, mainLogName)
	if !strings.Contains(content, "https://example.edu/admissions") {
		t.Errorf("主日志缺少info消息: %s", content)
	}
	if !strings.Contains(content, "https://example.edu/tuition") {
		t.Errorf("debug级别下主日志应包含debug消息: %s", content)
	}
}

func TestInitLogger_LevelFiltersDebug(t *testing.T) {
	dir := initTestLogger(t, "info")

	Info("信息日志")
	Debugf("调试日志: %v", true)

	content := readLog(t, dir, mainLogName)
	if !strings.Contains(content, "信息日志") {
		t.Error("主日志缺少info消息")
	}
	if strings.Contains(content, "调试日志") {
		t.Error("info级别下不应写入debug消息")
	}
}

func TestInitLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	initTestLogger(t, "verbose")

	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Errorf("GlobalLevel = %v, want info", got)
	}
}

func TestErrorLogOnlyReceivesErrors(t *testing.T) {
	dir := initTestLogger(t, "info")

	Info("普通信息不应进入错误日志")
	Warnf("跳过 [%s]: %s", "https://example.edu/missing", "404")
	Errorf("抓取失败: %s", "https://example.com")

	content := readLog(t, dir, errorLogName)
	if !strings.Contains(content, "抓取失败") {
		t.Error("错误日志缺少error级别消息")
	}
	if strings.Contains(content, "普通信息") || strings.Contains(content, "跳过") {
		t.Errorf("错误日志只应包含error及以上级别: %s", content)
	}
}

func TestComponent_AddsField(t *testing.T) {
	dir := initTestLogger(t, "info")

	logger := Component("crawler")
	logger.Info().Str("url", "https://example.edu").Msg("接受页面")

	content := readLog(t, dir, mainLogName)
	if !strings.Contains(content, `"component":"crawler"`) {
		t.Errorf("缺少component字段: %s", content)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	filter := &LevelFilter{Writer: &buf, MinLevel: zerolog.ErrorLevel}

	if n, err := filter.Write([]byte("plain")); err != nil || n != 5 {
		t.Errorf("Write = %d, %v", n, err)
	}
	filter.WriteLevel(zerolog.WarnLevel, []byte("warn"))
	filter.WriteLevel(zerolog.ErrorLevel, []byte("error"))

	if got := buf.String(); got != "error" {
		t.Errorf("转发内容 = %q, want %q", got, "error")
	}
}

func TestZeroLoggerIsSilent(t *testing.T) {
	Logger = zerolog.Logger{}
	Info("未初始化时调用不应panic")
	Errorf("%s", "同上")
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()
	if config.Level != "info" || config.LogDir != "logs" {
		t.Errorf("默认级别/目录错误: %+v", config)
	}
	if config.MaxSize != 10 || config.MaxBackups != 3 || config.MaxAge != 28 {
		t.Errorf("默认轮转参数错误: %+v", config)
	}
	if !config.Compress || config.Quiet {
		t.Errorf("默认应启用压缩并输出控制台: %+v", config)
	}
}
