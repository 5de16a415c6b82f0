package remoteconfig

import "fmt"

// Key identifies a remote configuration parameter.
type Key int

const (
	LoadingPhrase Key = iota + 1
	WelcomeMessage
	WelcomeMessageCaps
	NewVersionCode
)

var keyNames = map[Key]string{
	LoadingPhrase:      "loading_phrase",
	WelcomeMessage:     "welcome_message",
	WelcomeMessageCaps: "welcome_message_caps",
	NewVersionCode:     "new_version_code",
}

// Keys returns every known key in declaration order.
func Keys() []Key {
	return []Key{LoadingPhrase, WelcomeMessage, WelcomeMessageCaps, NewVersionCode}
}

// String returns the wire name of the key.
func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// Valid reports whether k belongs to the known key set.
func (k Key) Valid() bool {
	_, ok := keyNames[k]
	return ok
}

// ParseKey maps a wire name to its Key.
func ParseKey(name string) (Key, error) {
	for key, keyName := range keyNames {
		if keyName == name {
			return key, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}
