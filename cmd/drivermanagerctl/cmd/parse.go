package cmd

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// driverSummary is the subset of a status-file driver block that the CLI
// renders.
type driverSummary struct {
	name     string
	class    string
	status   string
	handlers int
	vars     int
}

type statusSnapshot struct {
	header  string
	drivers []driverSummary
}

// parseStatusFile reads the manager's status file and extracts a
// per-driver summary. It is deliberately tolerant: an unrecognized line
// is skipped rather than treated as an error, since the file is a
// human-readable report, not a strict grammar.
func parseStatusFile(path string) (*statusSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap := &statusSnapshot{}
	scanner := bufio.NewScanner(f)
	var cur *driverSummary

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "Driver Manager status:"):
			snap.header = trimmed
		case strings.HasPrefix(line, "DRIVER_"):
			if cur != nil {
				snap.drivers = append(snap.drivers, *cur)
			}
			cur = &driverSummary{name: trimmed}
		case cur == nil:
			continue
		case strings.HasPrefix(trimmed, "Type:"):
			cur.class = strings.TrimSpace(strings.TrimPrefix(trimmed, "Type:"))
		case strings.HasPrefix(trimmed, "Status:"):
			cur.status = strings.TrimSpace(strings.TrimPrefix(trimmed, "Status:"))
		case strings.HasPrefix(trimmed, "Handlers"):
			cur.handlers = parseCount(trimmed, "Handlers (", ")")
		}
		if strings.HasPrefix(trimmed, "DRIVER_") == false && cur != nil && isVariableLine(trimmed) {
			cur.vars++
		}
	}
	if cur != nil {
		snap.drivers = append(snap.drivers, *cur)
	}
	return snap, scanner.Err()
}

func parseCount(s, prefix, suffix string) int {
	i := strings.Index(s, prefix)
	if i < 0 {
		return 0
	}
	rest := s[i+len(prefix):]
	j := strings.Index(rest, suffix)
	if j < 0 {
		return 0
	}
	n, _ := strconv.Atoi(rest[:j])
	return n
}

// isVariableLine recognizes the per-variable status-file line shape:
// "<var_id> <handlers> = <value>  (R:<n> W:<n>) - <info>".
func isVariableLine(line string) bool {
	return strings.Contains(line, " = ") && strings.Contains(line, "(R:") && strings.Contains(line, "W:")
}
