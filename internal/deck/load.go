package deck

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robalobadob/flipcard/assets"
)

// ErrEmptyTable is returned when a card table has no definitions.
var ErrEmptyTable = errors.New("deck: card table is empty")

// Load reads the card table from path, or from the embedded default table
// when path is empty.
//
// Table format, one definition per line:
//
//	label | image | color | sound
//
// Blank lines and lines starting with '#' are ignored.
func Load(path string) ([]Definition, error) {
	if path == "" {
		lines, err := assets.CardLines()
		if err != nil {
			return nil, fmt.Errorf("read embedded cards: %w", err)
		}
		return Parse(lines)
	}
	lines, err := readTableFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(lines)
}

// Parse converts table lines into definitions.
// Labels must be unique since they act as pair keys.
func Parse(lines []string) ([]Definition, error) {
	var out []Definition
	seen := make(map[string]struct{})
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 4 {
			return nil, fmt.Errorf("line %d: want 4 fields, got %d", i+1, len(parts))
		}
		d := Definition{
			Label: strings.TrimSpace(parts[0]),
			Image: strings.TrimSpace(parts[1]),
			Color: strings.TrimSpace(parts[2]),
			Sound: strings.TrimSpace(parts[3]),
		}
		if d.Label == "" {
			return nil, fmt.Errorf("line %d: empty label", i+1)
		}
		if _, dup := seen[strings.ToLower(d.Label)]; dup {
			return nil, fmt.Errorf("line %d: duplicate label %q", i+1, d.Label)
		}
		seen[strings.ToLower(d.Label)] = struct{}{}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, ErrEmptyTable
	}
	return out, nil
}

func readTableFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}
