// Package replay runs recorded IR timing logs through the capture chain
// on a host.
//
// A timing log lists one edge per line: an optional level followed by the
// time elapsed since the previous edge. Durations without a unit are in
// microseconds; Go duration strings ("4.5ms") are accepted too. Levels are
// 0/1, low/high or L/H. When a line has no level, levels alternate
// starting low, which is what an idle-high receiver produces.
// Blank lines and text after '#' are ignored.
//
//	# NEC header, then two bits
//	0 9000
//	1 4500
//	0 560
//	1 1690
package replay // import "github.com/sparques/ircapture/internal/replay"

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sparques/ircapture"
)

// Parse reads a timing log.
func Parse(r io.Reader) ([]ircapture.Edge, error) {
	var (
		edges []ircapture.Edge
		level = true // flipped before use: the first implicit edge is low
		sc    = bufio.NewScanner(r)
		line  = 0
	)
	for sc.Scan() {
		line++
		txt := sc.Text()
		if i := strings.IndexByte(txt, '#'); i >= 0 {
			txt = txt[:i]
		}
		fields := strings.Fields(txt)
		switch len(fields) {
		case 0:
			continue
		case 1:
			level = !level
		case 2:
			v, err := parseLevel(fields[0])
			if err != nil {
				return nil, fmt.Errorf("replay: line %d: %w", line, err)
			}
			level = v
			fields = fields[1:]
		default:
			return nil, fmt.Errorf("replay: line %d: too many fields (%d)", line, len(fields))
		}

		d, err := parseDuration(fields[0])
		if err != nil {
			return nil, fmt.Errorf("replay: line %d: %w", line, err)
		}
		edges = append(edges, ircapture.Edge{Level: level, Duration: d})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("replay: could not read timing log: %w", err)
	}
	return edges, nil
}

func parseLevel(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "0", "l", "low":
		return false, nil
	case "1", "h", "high":
		return true, nil
	default:
		return false, fmt.Errorf("invalid level %q", s)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if us, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(us) * time.Microsecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
