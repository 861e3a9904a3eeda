package auth

import (
	"context"
	"encoding/json"

	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
)

// Draft is the partially filled onboarding form. It is persisted as one JSON
// blob so it survives a full navigation away and back (the OAuth redirect);
// it cannot live only in in-memory state.
type Draft struct {
	Name     string   `json:"name,omitempty"`
	Goals    []string `json:"goals,omitempty"`
	Timezone string   `json:"timezone,omitempty"`
	Device   string   `json:"device,omitempty"`
}

// HasProfile reports whether the draft carries anything worth flushing to
// the server profile.
func (d Draft) HasProfile() bool {
	return d.Name != "" || len(d.Goals) > 0 || d.Timezone != ""
}

// merge overlays the non-zero fields of other onto d.
func (d Draft) merge(other Draft) Draft {
	if other.Name != "" {
		d.Name = other.Name
	}
	if other.Goals != nil {
		d.Goals = other.Goals
	}
	if other.Timezone != "" {
		d.Timezone = other.Timezone
	}
	if other.Device != "" {
		d.Device = other.Device
	}
	return d
}

// DraftStore persists the onboarding draft.
type DraftStore struct {
	local storage.Local
	log   logging.Logger
}

func NewDraftStore(local storage.Local, log logging.Logger) *DraftStore {
	return &DraftStore{local: local, log: log.With("component", "draft")}
}

// Get returns the stored draft; a missing or corrupt blob reads as empty.
func (s *DraftStore) Get(ctx context.Context) Draft {
	raw, ok, err := s.local.Get(ctx, KeyDraft)
	if err != nil || !ok {
		return Draft{}
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		s.log.Warn(ctx, "corrupt onboarding draft, ignoring", "error", err)
		return Draft{}
	}
	return d
}

// Merge overlays partial onto the stored draft and persists the result.
func (s *DraftStore) Merge(ctx context.Context, partial Draft) error {
	return s.put(ctx, s.Get(ctx).merge(partial))
}

// Put replaces the stored draft wholesale.
func (s *DraftStore) Put(ctx context.Context, d Draft) error {
	return s.put(ctx, d)
}

func (s *DraftStore) put(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.local.Set(ctx, KeyDraft, string(data))
}

// Clear removes the draft, after a successful flush or on sign-out.
func (s *DraftStore) Clear(ctx context.Context) error {
	return s.local.Delete(ctx, KeyDraft)
}
