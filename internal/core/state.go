package core

import "fmt"

// Status is the tag of a session's State.
type Status int

const (
	StatusIdle Status = iota
	StatusParsing
	StatusParsed
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusParsing:
		return "parsing"
	case StatusParsed:
		return "parsed"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// MarshalText lets Status appear by name in JSON.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is the complete, immutable view of one conversion session.
// Transitions are pure: each method returns a new State.
//
// Dataset only changes on a successful parse (Parsed or Empty). While a
// parse is running, and after one fails, the previous Dataset stays
// readable, so previews and downloads never see a partial result.
type State struct {
	Status     Status
	Dataset    *Dataset
	Err        error
	FileName   string
	Generation uint64
	Page       int
	Stats      ParseStats
}

// Begin starts a new ingestion and supersedes any ingestion in flight.
func (s State) Begin(fileName string) State {
	s.Generation++
	s.Status = StatusParsing
	s.FileName = fileName
	s.Err = nil
	return s
}

// Succeed installs ds if gen is still the current ingestion; otherwise the
// result is stale and s is returned unchanged. The page index is kept when
// it still fits the new dataset and reset to 1 when it does not.
func (s State) Succeed(gen uint64, ds *Dataset, stats ParseStats, pageSize int) State {
	if !s.current(gen) {
		return s
	}
	if ds == nil {
		ds = &Dataset{}
	}

	s.Dataset = ds
	s.Stats = stats
	s.Err = nil
	if ds.IsEmpty() {
		s.Status = StatusEmpty
	} else {
		s.Status = StatusParsed
	}
	s.Page = Paginate(ds.Len(), pageSize, s.Page).Number
	return s
}

// Fail records err for ingestion gen, keeping the previous Dataset.
// Stale generations are ignored.
func (s State) Fail(gen uint64, err error) State {
	if !s.current(gen) {
		return s
	}
	s.Status = StatusFailed
	s.Err = err
	return s
}

// SetPage moves the preview to page number, resetting to 1 when out of range.
func (s State) SetPage(number, pageSize int) State {
	s.Page = Paginate(s.Dataset.Len(), pageSize, number).Number
	return s
}

// HasData reports whether there is anything to preview or export.
func (s State) HasData() bool { return !s.Dataset.IsEmpty() }

// Failure classifies the current error.
func (s State) Failure() Failure {
	if s.Status == StatusEmpty {
		return FailureEmpty
	}
	return Classify(s.Err)
}

// Message is the status line shown to the user.
func (s State) Message() string {
	switch s.Status {
	case StatusIdle:
		return "Choose or drop a CSV file to convert"
	case StatusParsing:
		return fmt.Sprintf("Parsing %s...", s.FileName)
	case StatusParsed:
		return fmt.Sprintf("Parsed %d records", s.Dataset.Len())
	case StatusEmpty:
		return MapError(ErrEmptyResult).Message
	case StatusFailed:
		return FormatUserError(s.Err)
	default:
		return ""
	}
}

func (s State) current(gen uint64) bool {
	return gen == s.Generation && s.Status == StatusParsing
}
