package synctask

import "strings"

// reservedWindowsNames are base names (case-insensitive, extension
// stripped) that Windows treats specially regardless of extension.
var reservedWindowsNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

const windowsReservedChars = `<>:"/\|?*`

// IsPathAllowed reports whether name, one path component (not a full
// path), may be tracked by the sync core: its own index files and key
// material are always rejected, and on Windows-class filesystems a
// further set of characters and reserved base names is rejected too.
func IsPathAllowed(name string, windowsClass bool) bool {
	if strings.HasPrefix(name, ".bajoo") {
		return false
	}
	if name == ".key" {
		return false
	}
	if !windowsClass {
		return true
	}
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(windowsReservedChars, r) {
			return false
		}
	}
	base := name
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return !reservedWindowsNames[strings.ToUpper(base)]
}

// IsHidden reports whether name is a dotfile, the way list_dir's
// optional exclude_hidden_files filter does.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
