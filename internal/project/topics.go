package project

import (
	"fmt"
	"strings"

	apperrors "github.com/brandsight/rfpd/internal/errors"
)

// defaultTopicSeeds are the three conversation lanes every project starts
// with, each opened by a single welcoming assistant message.
var defaultTopicSeeds = []struct {
	key, name, welcome string
}{
	{"transition", "Transition", "Let's craft the Transition section for your proposal. What angle should we emphasize?"},
	{"governance", "Governance", "Ready to outline Governance. Any specific committees or KPIs to include?"},
	{"continuity", "Business Continuity", "Let's detail Business Continuity. Do you have RTO/RPO targets?"},
}

// DefaultTopicKey is the topic selected when an externally supplied key
// does not resolve.
const DefaultTopicKey = "transition"

// seedDefaultTopics populates a project's topics. Idempotent: a project
// that already has topics is left untouched. Caller holds the store lock.
func (s *Store) seedDefaultTopics(p *Project) {
	if len(p.Topics) > 0 {
		return
	}
	for _, seed := range defaultTopicSeeds {
		p.Topics = append(p.Topics, &Topic{
			Key:         seed.key,
			DisplayName: seed.name,
			Thread:      []Message{{Role: RoleAssistant, Content: seed.welcome}},
		})
	}
	p.ActiveTopicKey = DefaultTopicKey
}

// CreateTopic adds a conversation topic to a project and makes it active.
// Names normalizing to an existing key select that topic instead of
// creating a duplicate thread.
func (s *Store) CreateTopic(projectID, displayName string) (*Topic, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil, apperrors.Invalidf("topic name is empty")
	}
	key := TopicKey(name)

	s.mu.Lock()
	p, ok := s.byID[projectID]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NotFoundf("project %s", projectID)
	}
	if existing := p.Topic(key); existing != nil {
		p.ActiveTopicKey = key
		s.mu.Unlock()
		s.logger.Debug().Str("project_id", projectID).Str("topic", key).Msg("topic exists, selected")
		return existing, nil
	}
	t := &Topic{
		Key:         key,
		DisplayName: name,
		Thread: []Message{{
			Role:    RoleAssistant,
			Content: fmt.Sprintf("Created topic “%s”. Share details to begin drafting.", name),
		}},
	}
	p.Topics = append(p.Topics, t)
	p.ActiveTopicKey = key
	s.mu.Unlock()

	s.logger.Info().Str("project_id", projectID).Str("topic", key).Msg("topic created")
	s.notify(Change{Kind: ChangeTopicCreated, ProjectID: projectID, TopicKey: key})
	return t, nil
}

// PostMessage appends a user message to a topic thread and schedules one
// independent deferred assistant reply. Replies append after whatever the
// thread holds at fire time; rapid sends are never coalesced.
func (s *Store) PostMessage(projectID, topicKey, text string) error {
	content := strings.TrimSpace(text)
	if content == "" {
		return apperrors.Invalidf("message text is empty")
	}

	s.mu.Lock()
	p, ok := s.byID[projectID]
	if !ok {
		s.mu.Unlock()
		return apperrors.NotFoundf("project %s", projectID)
	}
	t := p.Topic(topicKey)
	if t == nil {
		s.mu.Unlock()
		return apperrors.NotFoundf("topic %s on project %s", topicKey, projectID)
	}
	t.Thread = append(t.Thread, Message{Role: RoleUser, Content: content})
	tasks := s.tasks
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeMessageAppended, ProjectID: projectID, TopicKey: topicKey, Role: RoleUser})

	if tasks != nil {
		tasks.ScheduleReply(projectID, func() { s.appendAssistantReply(projectID, topicKey) })
	}
	return nil
}

// appendAssistantReply appends the templated acknowledgment when a reply
// timer fires. Silent no-op when the project or topic is gone.
func (s *Store) appendAssistantReply(projectID, topicKey string) {
	s.mu.Lock()
	p, ok := s.byID[projectID]
	if !ok {
		s.mu.Unlock()
		return
	}
	t := p.Topic(topicKey)
	if t == nil {
		s.mu.Unlock()
		return
	}
	t.Thread = append(t.Thread, Message{
		Role:    RoleAssistant,
		Content: fmt.Sprintf("Acknowledged. I'll refine the %s section accordingly.", t.DisplayName),
	})
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeMessageAppended, ProjectID: projectID, TopicKey: topicKey, Role: RoleAssistant})
}

// SetActiveTopic sets the active topic for a project's chat view. Unknown
// keys fall back to the first default topic rather than erroring, since
// this path is driven by untrusted external state. Returns the resolved
// key.
func (s *Store) SetActiveTopic(projectID, key string) (string, error) {
	s.mu.Lock()
	p, ok := s.byID[projectID]
	if !ok {
		s.mu.Unlock()
		return "", apperrors.NotFoundf("project %s", projectID)
	}
	resolved := key
	if p.Topic(resolved) == nil {
		resolved = DefaultTopicKey
		if p.Topic(resolved) == nil && len(p.Topics) > 0 {
			resolved = p.Topics[0].Key
		}
	}
	p.ActiveTopicKey = resolved
	s.mu.Unlock()
	return resolved, nil
}

// ActiveTopic returns the project's active topic key.
func (s *Store) ActiveTopic(projectID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[projectID]
	if !ok {
		return "", apperrors.NotFoundf("project %s", projectID)
	}
	return p.ActiveTopicKey, nil
}
