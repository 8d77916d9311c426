package main

import _ "embed"

// embeddedConfig holds the YAML configuration embedded at build time.
// Build scripts may overwrite embed_config.yaml with site defaults before
// compiling; the checked-in file carries no overrides.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
