package analysis

import "fmt"

// MalformedRecordError reports a schema or range violation in an input row.
// The offending record is logged and skipped; it never corrupts aggregates.
type MalformedRecordError struct {
	FrameNum int
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at frame %d: %s", e.FrameNum, e.Reason)
}

// InsufficientDataError reports a configuration with zero usable windows or
// frames. The configuration is excluded from profile and frontier outputs;
// the run as a whole continues.
type InsufficientDataError struct {
	Config Config
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for config %s: %s", e.Config, e.Reason)
}

// ConfigMismatchError reports that the designated ground-truth configuration
// is absent from the input set. This is fatal: no scoring is possible.
type ConfigMismatchError struct {
	GroundTruth Config
}

func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("ground truth config %s not present in input set", e.GroundTruth)
}

// OutOfOrderError reports a window summary delivered to a Trigger with an
// interval index below the last processed one. Equal indexes are no-op
// duplicates; lower indexes are fatal ordering violations.
type OutOfOrderError struct {
	Last int
	Got  int
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out-of-order window: interval %d after %d", e.Got, e.Last)
}
