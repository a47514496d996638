package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed cards.txt migrations/*.sql
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// CardLines returns the non-comment lines of the built-in card table.
func CardLines() ([]string, error) {
	return readLines("cards.txt")
}

// Migrations exposes the embedded *.sql files rooted at the migrations directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "migrations")
	if err != nil {
		// the directory is embedded at build time; Sub only fails on a bad path
		panic(err)
	}
	return sub
}
