package validation

// UsernameReason is the fixed rejection reason for usernames.
const UsernameReason = "username may only contain letters and digits"

// ValidateUsername accepts non-empty strings made exclusively of ASCII letters and digits,
// returned unchanged.
func (v *Validator) ValidateUsername(raw string) (string, error) {
	if raw == "" {
		return "", reject("username", UsernameReason)
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return "", reject("username", UsernameReason)
		}
	}
	return raw, nil
}
