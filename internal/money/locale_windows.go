//go:build windows

package money

import (
	"syscall"
	"unsafe"
)

const localeNameMaxLength = 85

var getUserDefaultLocaleName = syscall.NewLazyDLL("kernel32.dll").NewProc("GetUserDefaultLocaleName")

// platformLocale returns the user default locale name, e.g. "sv-SE".
func platformLocale() string {
	buf := make([]uint16, localeNameMaxLength)
	n, _, _ := getUserDefaultLocaleName.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf)
}
