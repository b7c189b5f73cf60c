//go:build darwin

package money

import (
	"os/exec"
	"strings"
)

// platformLocale reads the AppleLocale preference, e.g. "sv_SE".
func platformLocale() string {
	out, err := exec.Command("defaults", "read", "-g", "AppleLocale").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
