// Package project implements the in-memory RFP project lifecycle model:
// the project store, the journey state machine, topic/thread bookkeeping
// and the selection state shared by all views.
package project

import (
	"regexp"
	"strings"
	"time"
)

// StageStatus is the lifecycle state of a single journey stage.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in-progress"
	StageCompleted  StageStatus = "completed"
)

// JourneyBlock is one stage in a project's journey pipeline.
// IconKey is an opaque reference for the presentation layer.
type JourneyBlock struct {
	Name    string      `json:"name"`
	Status  StageStatus `json:"status"`
	IconKey string      `json:"icon"`
}

// Analysis is the structured result attached once processing completes.
// Replaced wholesale, never mutated in place.
type Analysis struct {
	RolesAndEfforts map[string]int `json:"roles_and_efforts"`
	Purpose         string         `json:"purpose,omitempty"`
	ScopeOfWork     string         `json:"scope_of_work,omitempty"`
	PaymentTerms    string         `json:"payment_terms,omitempty"`
	KeyRequirements string         `json:"key_requirements,omitempty"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a topic thread. Append-only and immutable.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Topic is a named conversation lane scoped to one project.
// Key is normalized and unique within the project; Thread is append-only.
type Topic struct {
	Key         string    `json:"key"`
	DisplayName string    `json:"name"`
	Thread      []Message `json:"thread"`
}

// Project is one uploaded RFP document and its derived lifecycle state.
// ID, Title and SourceFileName are immutable after creation.
type Project struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	SourceFileName string         `json:"source_file_name"`
	Journey        []JourneyBlock `json:"journey"`
	Analysis       *Analysis      `json:"analysis,omitempty"`
	Topics         []*Topic       `json:"topics"`
	ActiveTopicKey string         `json:"active_topic_key"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Topic returns the topic with the given key, or nil.
func (p *Project) Topic(key string) *Topic {
	for _, t := range p.Topics {
		if t.Key == key {
			return t
		}
	}
	return nil
}

// acceptedExtension is the single document type the upload boundary accepts.
const acceptedExtension = ".pdf"

// AcceptsFileName reports whether the file name denotes a supported
// document type. Only the name is inspected; content is never parsed.
func AcceptsFileName(fileName string) bool {
	return strings.HasSuffix(strings.ToLower(fileName), acceptedExtension)
}

var wordStartRe = regexp.MustCompile(`(^|\s)[a-z]`)

// TitleFromFileName derives a display title from an uploaded file name:
// the extension is stripped, underscores become spaces and each word is
// title-cased. "Transition_Services_Agreement.pdf" becomes
// "Transition Services Agreement".
func TitleFromFileName(fileName string) string {
	base := fileName
	if AcceptsFileName(base) {
		base = base[:len(base)-len(acceptedExtension)]
	}
	base = strings.ReplaceAll(base, "_", " ")
	return wordStartRe.ReplaceAllStringFunc(base, strings.ToUpper)
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// TopicKey normalizes a topic display name into its key: trimmed,
// lowercased, whitespace runs collapsed to a single hyphen.
func TopicKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return whitespaceRe.ReplaceAllString(s, "-")
}
