// Package assets embeds the files shipped with the binaries:
// email templates and the seed records of the reference API.
package assets

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed all:templates fixtures
var FS embed.FS

const (
	EmailTemplatesDir = "templates/email"
	FixturesDir       = "fixtures"
)

// Fixtures returns where the seed records live: dir on disk if set, the embedded ones otherwise.
func Fixtures(dir string) (fs.FS, string) {
	if dir == "" {
		return FS, FixturesDir
	}
	return os.DirFS(dir), "."
}
