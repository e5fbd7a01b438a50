// Package appfs exposes the static assets shipped with the binary:
// database migrations, email templates and the common-passwords list.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS
