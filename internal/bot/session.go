package bot

import (
	"sync"

	"github.com/polkiloo/digishop/internal/domain/model"
)

// SessionState is the pending multi-step input of a chat.
// The concrete type carries the payload collected so far.
type SessionState interface {
	sessionState()
}

// StateIdle expects no free-form input.
type StateIdle struct{}

// StateAwaitingTopupAmount expects the topup amount in USD.
type StateAwaitingTopupAmount struct{}

// StateAwaitingCreditAmount expects the amount an administrator credits to TargetUserID.
type StateAwaitingCreditAmount struct {
	TargetUserID int64
}

// StateAwaitingFieldValue expects the new value of one product field.
type StateAwaitingFieldValue struct {
	ProductID int64
	Field     model.ProductField
}

func (StateIdle) sessionState() {}
func (StateAwaitingTopupAmount) sessionState() {}
func (StateAwaitingCreditAmount) sessionState() {}
func (StateAwaitingFieldValue) sessionState() {}

// Sessions keeps the state of every chat in memory.
type Sessions struct {
	mu     sync.Mutex
	states map[int64]SessionState
}

func NewSessions() *Sessions {
	return &Sessions{states: make(map[int64]SessionState)}
}

// Get returns StateIdle for unknown chats.
func (s *Sessions) Get(chatID int64) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[chatID]; ok {
		return state
	}
	return StateIdle{}
}

func (s *Sessions) Set(chatID int64, state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, idle := state.(StateIdle); idle || state == nil {
		delete(s.states, chatID)
		return
	}
	s.states[chatID] = state
}

// Take returns the current state and resets the chat to idle.
func (s *Sessions) Take(chatID int64) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[chatID]
	if !ok {
		return StateIdle{}
	}
	delete(s.states, chatID)
	return state
}
