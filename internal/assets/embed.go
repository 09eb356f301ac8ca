// Package assets implements the Asset Initializer (spec §4.B): it
// guarantees the hook-marked agent-context file, the skill file with its
// integration addendum, the skill-side agent rules file, the session
// directory with its .gitignore, and (full mode) the SPEC.md/PROGRESS.md
// templates all exist, idempotently.
package assets

import "embed"

//go:embed templates/*.md
var embeddedFS embed.FS
