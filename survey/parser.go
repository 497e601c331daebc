package survey

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseReadingsFile reads and parses a sensor readings text export.
func ParseReadingsFile(path string) ([]*SensorReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()
	return ParseReadings(f)
}

// ParseReadings parses the delimited text format: blocks separated by blank
// lines, each starting with a "--- sensor N ---" header followed by one
// "x,y,z" landmark per line.
func ParseReadings(r io.Reader) ([]*SensorReading, error) {
	var readings []*SensorReading

	id := -1
	var landmarks []Landmark
	flush := func() {
		if id >= 0 {
			readings = append(readings, NewSensorReading(id, landmarks))
			id = -1
			landmarks = nil
		}
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}

		if strings.HasPrefix(line, "---") {
			flush()
			parsed, err := parseSensorHeader(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			id = parsed
			continue
		}

		if id < 0 {
			return nil, fmt.Errorf("line %d: landmark before sensor header: %q", lineNo, line)
		}
		l, err := ParseLandmark(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		landmarks = append(landmarks, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	flush()

	return readings, nil
}

// parseSensorHeader extracts the sensor id from a "--- sensor N ---" line.
func parseSensorHeader(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return 0, fmt.Errorf("invalid sensor header: %q", line)
	}
	id, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, fmt.Errorf("invalid sensor id in header %q: %w", line, err)
	}
	return id, nil
}

// ParseLandmark parses a single "x,y,z" coordinate triple.
func ParseLandmark(s string) (Landmark, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Landmark{}, fmt.Errorf("cannot parse landmark, want x,y,z: %q", s)
	}

	var coords [3]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return Landmark{}, fmt.Errorf("cannot parse landmark coordinate %q: %w", p, err)
		}
		coords[i] = v
	}
	return Landmark{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
