package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devbuddy-ai/devbuddy/models"
)

// Cargo runs "cargo clippy" or "cargo check" from the crate root that
// contains the analysed file.
type Cargo struct {
	Options
	// Subcommand is "clippy" or "check".
	Subcommand string
	// DenyWarnings passes -D warnings to clippy.
	DenyWarnings bool
}

func (c *Cargo) Name() string { return "cargo " + c.Subcommand }

// cargoMessage mirrors one line of --message-format=json output.
type cargoMessage struct {
	Reason  string `json:"reason"`
	Message *struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Code    *struct {
			Code string `json:"code"`
		} `json:"code"`
		Spans []struct {
			FileName  string `json:"file_name"`
			LineStart int    `json:"line_start"`
			IsPrimary bool   `json:"is_primary"`
		} `json:"spans"`
	} `json:"message"`
}

func (c *Cargo) Scan(ctx context.Context, file string) []models.Issue {
	root, ok := FindCargoRoot(file)
	if !ok {
		return nil
	}
	args := []string{c.Subcommand, "--message-format=json", "--quiet"}
	if c.Subcommand == "clippy" && c.DenyWarnings {
		args = append(args, "--", "-D", "warnings")
	}
	res, ok := c.run(ctx, "cargo", args, root)
	if !ok {
		return nil
	}
	return parseCargo(res.Stdout, file)
}

// FindCargoRoot walks up from file (at most 10 levels) looking for
// Cargo.toml.
func FindCargoRoot(file string) (string, bool) {
	dir := filepath.Dir(file)
	for range 10 {
		if _, err := os.Stat(filepath.Join(dir, "Cargo.toml")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func parseCargo(out, file string) []models.Issue {
	var issues []models.Issue
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var d cargoMessage
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			continue
		}
		if d.Reason != "compiler-message" || d.Message == nil {
			continue
		}
		for _, span := range d.Message.Spans {
			if !span.IsPrimary {
				continue
			}
			if !sameFile(span.FileName, file) {
				break
			}
			row := span.LineStart
			if row <= 0 {
				row = 1
			}
			msg := d.Message.Message
			if d.Message.Code != nil && d.Message.Code.Code != "" {
				msg = fmt.Sprintf("[%s] %s", d.Message.Code.Code, msg)
			}
			issues = append(issues, models.Issue{
				Level:   models.MapSeverity(d.Message.Level),
				Line:    row,
				Message: msg,
			})
			break
		}
	}
	return issues
}
