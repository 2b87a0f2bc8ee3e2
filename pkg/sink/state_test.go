package sink

import "testing"

func TestState_String(t *testing.T) {
	cases := []struct {
		s    State
		want string
	}{
		{RecoveryStarted, "RECOVERY_STARTED"},
		{RecoveryPartitionPaused, "RECOVERY_PARTITION_PAUSED"},
		{WALApplied, "WAL_APPLIED"},
		{WALTruncated, "WAL_TRUNCATED"},
		{OffsetReset, "OFFSET_RESET"},
		{WriteStarted, "WRITE_STARTED"},
		{WritePartitionPaused, "WRITE_PARTITION_PAUSED"},
		{ShouldRotate, "SHOULD_ROTATE"},
		{TempFileClosed, "TEMP_FILE_CLOSED"},
		{WALAppended, "WAL_APPENDED"},
		{FileCommitted, "FILE_COMMITTED"},
		{State(999), "UNKNOWN"},
	}

	for _, c := range cases {
		if got := c.s.String(); got != c.want {
			t.Errorf("State(%d).String() = %q, want %q", c.s, got, c.want)
		}
	}
}
