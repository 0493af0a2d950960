package project

import (
	"github.com/rs/zerolog"
)

// Publisher mirrors the active topic key to an external shareable
// parameter, typically a URL query value.
type Publisher func(topicKey string)

// TopicSync binds one project's active topic to an external string
// parameter. The external value seeds the in-memory state exactly once at
// bind time; afterwards every change is published outward. Inbound
// external changes are ignored unless FollowExternal is enabled, so the
// default mode is read-once-then-write-only.
type TopicSync struct {
	store     *Store
	projectID string
	publish   Publisher
	follow    bool
	logger    zerolog.Logger
}

// SyncOption configures a TopicSync.
type SyncOption func(*TopicSync)

// FollowExternal makes the synchronizer apply external parameter changes
// that arrive after seeding, instead of the default outward-only mode.
func FollowExternal() SyncOption {
	return func(ts *TopicSync) { ts.follow = true }
}

// NewTopicSync binds the project's active topic to the external parameter
// value, seeding from it immediately (with fallback for unknown keys) and
// publishing the resolved key back out.
func NewTopicSync(store *Store, projectID, external string, publish Publisher, logger zerolog.Logger, opts ...SyncOption) (*TopicSync, error) {
	ts := &TopicSync{
		store:     store,
		projectID: projectID,
		publish:   publish,
		logger:    logger.With().Str("component", "topicsync").Str("project_id", projectID).Logger(),
	}
	for _, opt := range opts {
		opt(ts)
	}

	seed := external
	if seed == "" {
		seed = DefaultTopicKey
	}
	resolved, err := store.SetActiveTopic(projectID, seed)
	if err != nil {
		return nil, err
	}
	ts.published(resolved)
	return ts, nil
}

// Set changes the active topic and publishes the resolved key outward.
func (ts *TopicSync) Set(key string) (string, error) {
	resolved, err := ts.store.SetActiveTopic(ts.projectID, key)
	if err != nil {
		return "", err
	}
	ts.published(resolved)
	return resolved, nil
}

// Apply handles an external parameter change arriving after the seed.
// In the default read-once mode it is ignored; with FollowExternal it
// behaves like Set. Returns the key now active.
func (ts *TopicSync) Apply(external string) (string, error) {
	if !ts.follow {
		ts.logger.Debug().Str("external", external).Msg("external change ignored (outward-only sync)")
		return ts.store.ActiveTopic(ts.projectID)
	}
	return ts.Set(external)
}

// Active returns the currently active topic key.
func (ts *TopicSync) Active() (string, error) {
	return ts.store.ActiveTopic(ts.projectID)
}

func (ts *TopicSync) published(key string) {
	if ts.publish != nil {
		ts.publish(key)
	}
	ts.logger.Debug().Str("topic", key).Msg("active topic published")
}
