package build

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// DockerfileInfo is the slice of a Dockerfile the dispatcher cares
// about: which args it declares and what it builds from.
type DockerfileInfo struct {
	Args  map[string]bool
	Froms []string
}

// ParseDockerfile scans a Dockerfile for ARG and FROM instructions.
// Line-based, not a full parser; the family Dockerfiles keep one
// instruction per line.
func ParseDockerfile(path string) (*DockerfileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &DockerfileInfo{Args: map[string]bool{}}
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "ARG":
			for _, decl := range fields[1:] {
				name, _, _ := strings.Cut(decl, "=")
				info.Args[name] = true
			}
		case "FROM":
			if len(fields) < 2 {
				continue
			}
			image := fields[1]
			if strings.HasPrefix(image, "--platform=") && len(fields) > 2 {
				image = fields[2]
			}
			info.Froms = append(info.Froms, image)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return info, nil
}

// Preflight checks a job's build args against the Dockerfile it is
// about to build. Args the Dockerfile never declares are silently
// dropped by docker, so a typo would otherwise build the wrong thing
// without a trace. Returns warning lines, one per undeclared arg.
func Preflight(job Job) ([]string, error) {
	info, err := ParseDockerfile(job.Dockerfile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", job.Dockerfile, err)
	}

	keys := make([]string, 0, len(job.BuildArgs))
	for k := range job.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []string
	for _, k := range keys {
		if !info.Args[k] {
			warnings = append(warnings, fmt.Sprintf("build arg %s is not declared in %s", k, job.Dockerfile))
		}
	}
	return warnings, nil
}
