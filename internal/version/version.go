package version

import (
	_ "embed"
	"strings"
)

//go:embed version.txt
var version string

func Get() string {
	return strings.TrimSpace(version)
}

// UserAgent is sent on every outgoing API request.
func UserAgent() string {
	return "snaprotate/" + Get()
}
