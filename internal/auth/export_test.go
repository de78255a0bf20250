package auth

import "time"

// SetClock replaces the token manager's clock in tests.
func (m *TokenManager) SetClock(now func() time.Time) {
	m.now = now
}
