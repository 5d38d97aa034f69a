package ies

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLogRecordString(t *testing.T) {
	for _, test := range []struct {
		name string
		r    LogRecord
		want string
	}{
		{
			name: "iteration record",
			r:    LogRecord{Iteration: 3, CostFunction: 1.5},
			want: "IES iter:3 cost function: 1.5",
		},
		{
			name: "out-of-band notice",
			r:    LogRecord{ID: "chain-1", Message: "IES_DEBUG is accepted but has no effect"},
			want: "IES chain-1: IES_DEBUG is accepted but has no effect",
		},
	} {
		if got := test.r.String(); got != test.want {
			t.Errorf("%s: String() = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestFileLogSinkAppends(t *testing.T) {
	path := t.TempDir() + "/ies.log"
	sink, err := NewFileLogSink(path)
	if err != nil {
		t.Fatalf("NewFileLogSink: %v", err)
	}
	defer sink.Close()

	want := []LogRecord{
		{Iteration: 1, CostFunction: 2.0},
		{Iteration: 2, CostFunction: 1.0},
	}
	for _, r := range want {
		if err := sink.LogUpdate(r); err != nil {
			t.Fatalf("LogUpdate: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	wantText := want[0].String() + "\n" + want[1].String() + "\n"
	if diff := cmp.Diff(wantText, string(data)); diff != "" {
		t.Errorf("log file contents mismatch (-want +got):\n%s", diff)
	}
}

func TestNopLogSinkIgnoresRecord(t *testing.T) {
	var sink NopLogSink
	if err := sink.LogUpdate(LogRecord{Iteration: 1}); err != nil {
		t.Errorf("NopLogSink.LogUpdate returned %v, want nil", err)
	}
}
