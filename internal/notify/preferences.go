package notify

import (
	"context"
	"fmt"
	"time"
)

// Night window during which muted users get delayed pushes
const (
	NightStartHour = 22
	NightEndHour   = 7
)

// PushPreference is what a user has chosen about push notifications
type PushPreference struct {
	Disabled  bool `json:"disabled"`
	NightMute bool `json:"night_mute"`
}

// PreferenceSource loads stored push preferences
type PreferenceSource interface {
	PushPreference(ctx context.Context, userID string) (PushPreference, error)
}

// Clock is the subset of domain.Clock the policy needs
type Clock interface {
	Now() time.Time
}

// PreferencePolicy implements Preferences on top of stored preferences
type PreferencePolicy struct {
	source   PreferenceSource
	clock    Clock
	location *time.Location
}

// NewPreferencePolicy creates a PreferencePolicy evaluating night time in loc
func NewPreferencePolicy(source PreferenceSource, clock Clock, loc *time.Location) *PreferencePolicy {
	if loc == nil {
		loc = time.UTC
	}
	return &PreferencePolicy{
		source:   source,
		clock:    clock,
		location: loc,
	}
}

// NeedsPush reports whether userID accepts push notifications at all
func (p *PreferencePolicy) NeedsPush(ctx context.Context, userID string) (bool, error) {
	pref, err := p.source.PushPreference(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load push preference: %w", err)
	}
	return !pref.Disabled, nil
}

// DelayPush reports whether a push to userID should wait until morning
func (p *PreferencePolicy) DelayPush(ctx context.Context, userID string) (bool, error) {
	pref, err := p.source.PushPreference(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load push preference: %w", err)
	}
	return pref.NightMute && IsNightTime(p.clock.Now().In(p.location)), nil
}

// IsNightTime reports whether t falls inside the night window
func IsNightTime(t time.Time) bool {
	h := t.Hour()
	return h >= NightStartHour || h < NightEndHour
}
