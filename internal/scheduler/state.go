package scheduler

import "sync"

// ReminderState порогов, уже сработавших для каждой брони в текущей сессии.
// Не сохраняется между сессиями.
type ReminderState struct {
	mu    sync.Mutex
	fired map[string]map[int]struct{}
}

// NewReminderState создает пустое состояние
func NewReminderState() *ReminderState {
	return &ReminderState{fired: make(map[string]map[int]struct{})}
}

// MarkFired отмечает порог; false, если он уже был отмечен
func (s *ReminderState) MarkFired(identity string, threshold int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.fired[identity]
	if !ok {
		set = make(map[int]struct{})
		s.fired[identity] = set
	}
	if _, done := set[threshold]; done {
		return false
	}
	set[threshold] = struct{}{}
	return true
}

// Fired сообщает, срабатывал ли порог для брони
func (s *ReminderState) Fired(identity string, threshold int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fired[identity][threshold]
	return ok
}

// Forget сбрасывает состояние броней (после отмены)
func (s *ReminderState) Forget(identities ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range identities {
		delete(s.fired, id)
	}
}

// Retain оставляет только перечисленные брони
func (s *ReminderState) Retain(identities ...string) {
	keep := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		keep[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.fired {
		if _, ok := keep[id]; !ok {
			delete(s.fired, id)
		}
	}
}

// Len количество отслеживаемых броней
func (s *ReminderState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fired)
}
