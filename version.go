package funil

import _ "embed"

// Version is the release number, read from the VERSION file.
//
//go:embed VERSION
var Version string
