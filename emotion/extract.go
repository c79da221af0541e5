package emotion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Protocol selects how much of the classifier output is trusted.
type Protocol string

const (
	// ProtocolLenient recovers a record from noisy output: first balanced
	// object, then the last non-empty line.
	ProtocolLenient Protocol = "lenient"
	// ProtocolStrict only accepts one JSON object on the last non-empty
	// stdout line.
	ProtocolStrict Protocol = "strict"
)

// ParseProtocol maps a config value to a Protocol, defaulting to lenient.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProtocolLenient:
		return ProtocolLenient, nil
	case ProtocolStrict:
		return ProtocolStrict, nil
	default:
		return "", fmt.Errorf("unknown classifier protocol %q", s)
	}
}

// Stage records which extraction step produced the record.
type Stage int

const (
	StageNone Stage = iota
	StageFirstObject
	StageLastLine
)

func (s Stage) String() string {
	switch s {
	case StageFirstObject:
		return "first_object"
	case StageLastLine:
		return "last_line"
	default:
		return "none"
	}
}

var errNoRecord = errors.New("no parseable record in classifier output")

// Extract pulls a valid Record out of raw process output. It never looks
// beyond the two stages; on failure the caller attaches the raw output.
//
// input is the text the classifier was given. Candidates that occur inside
// it are skipped: classifiers echo their input, and an echoed record is
// the caller's, not the model's.
func Extract(output, input string, protocol Protocol) (Record, Stage, error) {
	var stageErrs []error
	echoed := func(candidate string) bool {
		return input != "" && strings.Contains(input, candidate)
	}

	if protocol != ProtocolStrict {
		if obj, ok := firstObjectNotIn(output, echoed); ok {
			rec, err := parseRecord(obj)
			if err == nil {
				return rec, StageFirstObject, nil
			}
			stageErrs = append(stageErrs, fmt.Errorf("first object: %w", err))
		} else {
			stageErrs = append(stageErrs, errors.New("first object: none found"))
		}
	}

	if line, ok := LastNonEmptyLine(output); ok {
		if echoed(line) {
			stageErrs = append(stageErrs, errors.New("last line: echoes the input text"))
		} else if rec, err := parseRecord(line); err == nil {
			return rec, StageLastLine, nil
		} else {
			stageErrs = append(stageErrs, fmt.Errorf("last line: %w", err))
		}
	} else {
		stageErrs = append(stageErrs, errors.New("last line: output is empty"))
	}

	return Record{}, StageNone, fmt.Errorf("%w: %w", errNoRecord, errors.Join(stageErrs...))
}

// firstObjectNotIn walks the balanced objects of s in order and returns the
// first one skip rejects.
func firstObjectNotIn(s string, skip func(string) bool) (string, bool) {
	offset := 0
	for offset < len(s) {
		obj, end, ok := balancedObject(s[offset:])
		if !ok {
			return "", false
		}
		if !skip(obj) {
			return obj, true
		}
		offset += end
	}
	return "", false
}

func parseRecord(s string) (Record, error) {
	var rec Record
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&rec); err != nil {
		return Record{}, err
	}
	if dec.More() {
		return Record{}, errors.New("trailing data after record")
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// FirstBalancedObject returns the first substring that starts with '{' and
// ends at its matching '}'. Braces inside JSON strings are ignored.
func FirstBalancedObject(s string) (string, bool) {
	obj, _, ok := balancedObject(s)
	return obj, ok
}

// balancedObject is FirstBalancedObject plus the offset just past the
// object's closing brace.
func balancedObject(s string) (string, int, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], i + 1, true
				}
			}
		}
		// Unbalanced from this brace; an opening brace further on may still
		// close properly.
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", 0, false
}

// LastNonEmptyLine returns the last line of s that is not blank, trimmed.
func LastNonEmptyLine(s string) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line, true
		}
	}
	return "", false
}
