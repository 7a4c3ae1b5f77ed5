// Package loadfile reports per-backend load values from a plain text file that
// an external agent rewrites in place.
package loadfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	logpkg "github.com/haukened/lbdns/internal/dns/common/log"
)

// Reporter reads load values from path on every call, so updates to the file
// are picked up by the next selection.
type Reporter struct {
	path   string
	logger logpkg.Logger
}

// New returns a Reporter for the file at path.
func New(path string, logger logpkg.Logger) *Reporter {
	return &Reporter{path: path, logger: logger}
}

// Loads returns the values in file order, one per backend.
func (r *Reporter) Loads(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open load file: %w", err)
	}
	defer f.Close()

	loads, err := ParseLoads(f)
	if err != nil {
		return nil, fmt.Errorf("load file %s: %w", r.path, err)
	}
	r.logger.Debug(map[string]any{"path": r.path, "count": len(loads)}, "load_file_read")
	return loads, nil
}

// ParseLoads parses one number per line. Blank lines and '#' comments are
// skipped; anything else that is not a finite number is an error.
func ParseLoads(rd io.Reader) ([]float64, error) {
	scanner := bufio.NewScanner(rd)
	var out []float64
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimPrefix(scanner.Text(), "\uFEFF")
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("line %d: invalid load value %q", lineNum, line)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
