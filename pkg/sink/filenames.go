package sink

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

const tempSubTree = "+tmp"

// committedFileName builds the immutable output filename that encodes the
// offset range it covers, per spec §6:
// <topic>+<partition>+<startOffset>+<endOffset>.<extension>, offsets
// zero-padded to padWidth.
func committedFileName(topic string, partition int32, start, end int64, padWidth int, extension string) string {
	return fmt.Sprintf("%s+%d+%s+%s.%s",
		topic, partition, zeroPad(start, padWidth), zeroPad(end, padWidth), extension)
}

// committedFilePath joins the topics dir, the partitioner's directory and
// the committed filename.
func committedFilePath(topicsDir, directory, topic string, partition int32, start, end int64, padWidth int, extension string) string {
	return path.Join(topicsDir, directory, committedFileName(topic, partition, start, end, padWidth, extension))
}

// tempFilePath is deterministic within an epoch: keyed only by topic,
// partition and encoded partition, never by time or a random token, so
// that recovery can recognize an orphaned temp file left by an
// interrupted rotation (spec §4.6). It lives under a dedicated "+tmp"
// sub-directory of the partitioned path.
func tempFilePath(topicsDir, directory, topic string, partition int32, encodedPartition, extension string) string {
	name := fmt.Sprintf("%s+%d+%s.%s", topic, partition, sanitize(encodedPartition), extension)
	return path.Join(topicsDir, directory, tempSubTree, name)
}

func zeroPad(n int64, width int) string {
	s := strconv.FormatInt(n, 10)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func sanitize(encodedPartition string) string {
	return strings.ReplaceAll(encodedPartition, "/", "_")
}

// parseCommittedOffsetRange extracts (start, end) from a committed
// filename of the form produced by committedFileName. Used by recovery to
// scan the topic directory for the maximum committed offset.
func parseCommittedOffsetRange(filename string) (start, end int64, ok bool) {
	base := filename
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	parts := strings.Split(base, "+")
	if len(parts) != 4 {
		return 0, 0, false
	}
	s, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	e, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return s, e, true
}
