package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerRedirects(t *testing.T) {
	t.Cleanup(func() { SetLogger(fmtPrintf) })

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	Logf("window %d dropped", 3)
	if got != "window 3 dropped" {
		t.Errorf("Logf output = %q, want %q", got, "window 3 dropped")
	}
}

func TestSetLoggerNilIsNoOp(t *testing.T) {
	SetLogger(nil)
	defer SetLogger(fmtPrintf)

	// Must not panic.
	Logf("ignored %v", 1)
}

func fmtPrintf(format string, v ...interface{}) {
	fmt.Printf(format+"\n", v...)
}
