package conversation

import "sync"

// Store is the session-scoped cache mapping thread identifiers to partially
// known conversations. Entries are upgraded in place as more data arrives;
// the whole store is cleared on sign-in and sign-out transitions.
type Store struct {
	mu      sync.Mutex
	threads map[string]Conversation
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{threads: make(map[string]Conversation)}
}

// Get returns the cached conversation for a thread, if any.
func (s *Store) Get(threadID string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.threads[threadID]
	return conv, ok
}

// Merge upgrades the cached entry for a thread with incoming data.
// Precedence rule: incoming non-zero fields overwrite the cached ones, but
// an empty incoming message list never erases a cached non-empty one.
func (s *Store) Merge(threadID string, incoming Conversation) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.threads[threadID]
	merged.ThreadID = threadID
	if incoming.Mode != "" {
		merged.Mode = incoming.Mode
	}
	if incoming.EndpointSource != "" {
		merged.EndpointSource = incoming.EndpointSource
	}
	if incoming.LastTimestamp != "" {
		merged.LastTimestamp = incoming.LastTimestamp
	}
	if incoming.Summary != "" {
		merged.Summary = incoming.Summary
	}
	if len(incoming.Messages) > 0 {
		merged.Messages = incoming.Messages
	}

	s.threads[threadID] = merged
	return merged
}

// Clear drops every cached conversation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make(map[string]Conversation)
}

// Len reports the number of cached threads.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}
