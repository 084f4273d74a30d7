package utils

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/rufus/internal/models"
)

func TestHeaderValidator_ValidateName(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		expectError bool
	}{
		{"合法名称-字母", "User-Agent", false},
		{"合法名称-数字", "X-Request-ID-123", false},
		{"非法名称-空格", "User Agent", true},
		{"非法名称-下划线", "User_Agent", true},
		{"非法名称-特殊字符", "User@Agent", true},
		{"非法名称-空字符串", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateName(tt.headerName)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateValue(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerValue string
		expectError bool
	}{
		{"合法值-ASCII", "Mozilla/5.0", false},
		{"合法值-空字符串", "", false},
		{"合法值-边界长度", strings.Repeat("a", MaxHeaderValueLength), false},
		{"非法值-超长", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"非法值-控制字符", "value\x00with\x01null", true},
		{"非法值-非ASCII", "中文", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateValue("X-Test", tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateHeader(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "User-Agent", "Mozilla/5.0", false},
		{"禁止头部-Host", "Host", "example.com", true},
		{"禁止头部-不区分大小写", "content-length", "123", true},
		{"非法名称", "User Agent", "value", true},
		{"非法值", "User-Agent", "value\x00bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateHeader(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
			var validationErr *models.ValidationError
			if err != nil && !errors.As(err, &validationErr) {
				t.Errorf("期望 *ValidationError, 实际 %T", err)
			}
		})
	}
}

func TestHeaderValidator_Validate(t *testing.T) {
	validator := NewHeaderValidator()

	ok := http.Header{
		"User-Agent": []string{"Mozilla/5.0"},
		"Accept":     []string{"*/*"},
	}
	if err := validator.Validate(ok); err != nil {
		t.Errorf("期望无错误, 实际错误=%v", err)
	}

	bad := http.Header{
		"User-Agent": []string{"Mozilla/5.0"},
		"Host":       []string{"example.com"},
	}
	if err := validator.Validate(bad); err == nil {
		t.Error("期望返回错误, 但无错误")
	}
}

func TestHeaderRedactor(t *testing.T) {
	redactor := NewHeaderRedactor()

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"Authorization", "Bearer token123", "Bearer ***"},
		{"X-Api-Key", "key12345678", "key1***5678"},
		{"X-Secret", "short", "***"},
		{"User-Agent", "Mozilla/5.0", "Mozilla/5.0"},
		{"Accept", "*/*", "*/*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			headers.Set(tt.name, tt.value)
			redacted := redactor.Redact(headers)
			if got := redacted[http.CanonicalHeaderKey(tt.name)]; got != tt.want {
				t.Errorf("Redact(%s) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := strings.Join([]string{
		"# 种子列表",
		"https://example.edu/admissions",
		"",
		"ftp://example.edu/files",
		"not a url",
		"https://example.org/",
		"https://example.edu/admissions",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("ReadURLsFromFile() error = %v", err)
	}
	want := []string{"https://example.edu/admissions", "https://example.org/"}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestReadURLsFromFile_NoValidURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("# nothing\n\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadURLsFromFile(path)
	if !errors.Is(err, models.ErrNoSeeds) {
		t.Errorf("error = %v, want ErrNoSeeds", err)
	}

	if _, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("文件不存在时应返回错误")
	}
}

func TestRedactSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"sk-1234567890", "sk-1***7890"},
	}
	for _, tt := range tests {
		if got := RedactSecret(tt.in); got != tt.want {
			t.Errorf("RedactSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactToString_Sorted(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Token", "abcdefghijkl")
	headers.Set("Accept", "text/html")
	got := NewHeaderRedactor().RedactToString(headers)
	want := "Accept: text/html, X-Token: abcd***ijkl"
	if got != want {
		t.Errorf("RedactToString = %q, want %q", got, want)
	}
}
