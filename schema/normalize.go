package schema

import "strings"

// identifier charset: [a-z0-9._-], lowercase only, no ':' since the colon
// joins session id and view type into the structural tab id.
func validIdentRune(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	if r >= '0' && r <= '9' {
		return true
	}
	return r == '.' || r == '_' || r == '-'
}

func validIdent(raw string) bool {
	if raw == "" || strings.TrimSpace(raw) != raw {
		return false
	}
	for _, r := range raw {
		if !validIdentRune(r) {
			return false
		}
	}
	return true
}

// ValidateProtocolID ensures a protocol id matches [a-z0-9._-].
func ValidateProtocolID(id ProtocolID) error {
	if !validIdent(string(id)) {
		return ErrInvalidProtocol
	}
	return nil
}

// ValidateSessionID ensures a session id matches [a-z0-9._-].
func ValidateSessionID(id SessionID) error {
	if !validIdent(string(id)) {
		return ErrInvalidSession
	}
	return nil
}

// ValidateViewType ensures a view type matches [a-z0-9._-].
func ValidateViewType(view ViewType) error {
	if !validIdent(string(view)) {
		return ErrInvalidView
	}
	return nil
}
