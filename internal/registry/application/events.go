package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

// ErrUnknownEvent is returned for an invalidation event name that is not recognized.
var ErrUnknownEvent = errors.New("unknown invalidation event")

// InvalidationEvent is an environment change that makes the cached index stale.
type InvalidationEvent string

const (
	EventPluginActivated     InvalidationEvent = "plugin-activated"
	EventPluginDeactivated   InvalidationEvent = "plugin-deactivated"
	EventThemeSwitched       InvalidationEvent = "theme-switched"
	EventPackageUpgraded     InvalidationEvent = "package-upgraded"
	EventExtensionRegistered InvalidationEvent = "extension-registered"
)

// InvalidationEvents lists every recognized event.
func InvalidationEvents() []InvalidationEvent {
	return []InvalidationEvent{
		EventPluginActivated,
		EventPluginDeactivated,
		EventThemeSwitched,
		EventPackageUpgraded,
		EventExtensionRegistered,
	}
}

// ParseInvalidationEvent accepts an event name in dash or underscore form.
func ParseInvalidationEvent(s string) (InvalidationEvent, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, e := range InvalidationEvents() {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// BuildSummary describes a completed index build.
type BuildSummary struct {
	ID         string                   `json:"id"`
	StartedAt  time.Time                `json:"started_at"`
	Duration   time.Duration            `json:"duration"`
	Counts     map[domain.Kind]int      `json:"counts"`
	Sources    map[domain.Kind][]string `json:"sources"`
	Extensions int                      `json:"extensions"`
}

// Total returns the number of records across kinds.
func (s BuildSummary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Notification is the payload published to registry subscribers.
// Build is set for pubsub.BuiltEvent, Event for pubsub.InvalidatedEvent
// when the invalidation came from HandleEvent.
type Notification struct {
	Build *BuildSummary
	Event InvalidationEvent
}
