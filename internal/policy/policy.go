// Package policy holds the escalation rules applied after a warning lands.
package policy

// ShouldAutoBan reports whether an updated warning count has reached the
// configured limit and the warning must convert into an automatic ban.
func ShouldAutoBan(warnings, limit int) bool {
	return warnings >= limit
}
