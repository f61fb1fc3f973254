// Package deps verifies the external tools the sync pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"soapbox/internal/config"
)

// Requirement defines an external binary soapbox relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of one requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// Requirements returns the binaries a sync run needs, honoring configured
// path overrides.
func Requirements(cfg *config.Config) []Requirement {
	ffmpeg := cfg.Transcode.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return []Requirement{
		{
			Name:        "ffmpeg",
			Command:     ffmpeg,
			Description: "transcodes downloaded audio to the playback profile",
		},
	}
}

// CheckBinaries evaluates the provided requirements.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Verify returns an error naming every missing requirement.
func Verify(cfg *config.Config) error {
	var missing []string
	for _, status := range CheckBinaries(Requirements(cfg)) {
		if !status.Available {
			missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}
	return nil
}
