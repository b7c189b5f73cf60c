//go:build !windows && !darwin

package money

// platformLocale has nothing beyond the environment on Unix.
func platformLocale() string { return "" }
