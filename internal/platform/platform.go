package platform

import (
	"os"
	"runtime"
	"strings"
)

// Environment names the shell family gcm is running under.
type Environment string

const (
	MacOS   Environment = "MACOS"
	Linux   Environment = "LINUX"
	Cygwin  Environment = "CYGWIN"
	GitBash Environment = "GITBASH"
	Windows Environment = "WINDOWS"
	Unknown Environment = "UNKNOWN"
)

// emojiKeys maps each environment to its key in the config emojis table.
var emojiKeys = map[Environment]string{
	MacOS:   "macos",
	Linux:   "linux",
	Cygwin:  "cygwin",
	GitBash: "git bash",
	Windows: "windows",
	Unknown: "unknown",
}

var defaultEmojis = map[string]string{
	"macos":    "🍎",
	"linux":    "🐧",
	"cygwin":   "🪟",
	"git bash": "🪟",
	"windows":  "🪟",
	"unknown":  "❓",
}

// Emoji returns the emoji for env, preferring an entry in emojis.
func (env Environment) Emoji(emojis map[string]string) string {
	key := emojiKeys[env]
	if e, ok := emojis[key]; ok && e != "" {
		return e
	}
	if e, ok := defaultEmojis[key]; ok {
		return e
	}
	return defaultEmojis["unknown"]
}

// Detect classifies the environment from the OS name and the shell's
// variables. The checks run in a fixed order, so a Cygwin or MSYS shell on
// Windows is reported as such rather than as WINDOWS.
func Detect(goos string, getenv func(string) string) Environment {
	low := func(k string) string { return strings.ToLower(getenv(k)) }
	ostype, term, shell, msystem := low("OSTYPE"), low("TERM"), low("SHELL"), low("MSYSTEM")
	goos = strings.ToLower(goos)

	switch {
	case strings.Contains(ostype, "darwin") || goos == "darwin":
		return MacOS
	case strings.Contains(ostype, "linux") || goos == "linux":
		return Linux
	case strings.Contains(ostype, "cygwin") || strings.Contains(term, "cygwin") || strings.Contains(shell, "cygwin"):
		return Cygwin
	case strings.Contains(ostype, "msys") || strings.Contains(ostype, "mingw") || strings.Contains(msystem, "mingw"):
		return GitBash
	case goos == "windows":
		return Windows
	}
	return Unknown
}

// Current detects the environment of this process.
func Current() Environment {
	return Detect(runtime.GOOS, os.Getenv)
}

// Machine is the host name, or "unknown" when it cannot be read.
func Machine() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}
