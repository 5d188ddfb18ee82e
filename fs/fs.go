// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

//go:embed migrations/*.sql assets/templates/email/* assets/common-passwords.txt.gz
var FS embed.FS
