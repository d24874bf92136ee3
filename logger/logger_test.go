package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Setenv(LOG_ENABLE, "30")

	DebugPrintf("debug %d", 1)
	InfoPrintf("info %d", 2)
	WarningPrintf("warn %d", 3)
	ErrorPrintf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Fatalf("messages below threshold were logged:\n%s", out)
	}
	if !strings.Contains(out, "WARNING warn 3") || !strings.Contains(out, "ERROR error 4") {
		t.Fatalf("missing messages at or above threshold:\n%s", out)
	}
}

func TestDefaultLevelIsCritical(t *testing.T) {
	t.Setenv(LOG_ENABLE, "")
	if got := LogLevel(); got != ARRAY_HPC_CRITICAL_LOGGING {
		t.Fatalf("LogLevel() = %d, want %d", got, ARRAY_HPC_CRITICAL_LOGGING)
	}
}

func TestObjAndTaskPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Setenv(LOG_ENABLE, "10")
	SetTask("4242", 7)
	defer Log().SetPrefix("")

	InfoObj("unit", map[string]string{"chrom": "chr1"})

	out := buf.String()
	if !strings.HasPrefix(out, "[4242:7] ") {
		t.Fatalf("missing task prefix: %q", out)
	}
	if !strings.Contains(out, `"chrom": "chr1"`) {
		t.Fatalf("object not rendered as JSON: %q", out)
	}
}
