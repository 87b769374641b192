package notify

import "strings"

// Family is the transport a delivery token belongs to.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyExpo
	FamilyFCM
)

func (f Family) String() string {
	switch f {
	case FamilyExpo:
		return "expo"
	case FamilyFCM:
		return "fcm"
	}
	return "unknown"
}

// minFCMTokenLength is the shortest string accepted as an FCM registration token.
const minFCMTokenLength = 100

// ClassifyToken decides the transport family of a token from its shape.
// Expo tokens look like ExponentPushToken[...] or ExpoPushToken[...]; FCM
// registration tokens are long opaque strings without whitespace or brackets.
func ClassifyToken(token string) Family {
	for _, prefix := range []string{"ExponentPushToken[", "ExpoPushToken["} {
		if strings.HasPrefix(token, prefix) && strings.HasSuffix(token, "]") && len(token) > len(prefix)+1 {
			return FamilyExpo
		}
	}
	if len(token) >= minFCMTokenLength && !strings.ContainsAny(token, " \t\r\n[]") {
		return FamilyFCM
	}
	return FamilyUnknown
}
