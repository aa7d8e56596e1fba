package store

import (
	"errors"
	"sync"
	"time"

	"exchange-marketplace-backend/internal/common/logger"
	"exchange-marketplace-backend/internal/features/auth/models"
)

// ErrNotReady возвращается для неизвестного, истёкшего или ещё не
// завершённого state. Случаи нарочно не различаются, чтобы поллинг не
// позволял перебирать действующие handle.
var ErrNotReady = errors.New("state not ready or expired")

type pendingAuth struct {
	createdAt time.Time
	result    *models.AuthResult
}

// Store — однопроцессный реестр незавершённых логинов. Всё состояние
// волатильно: перезапуск процесса обрывает начатые handshake.
type Store struct {
	mu      sync.Mutex
	entries map[string]*pendingAuth
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	done    chan struct{}
}

func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*pendingAuth),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create регистрирует новый handle. Повторный Create тем же handle
// перезаписывает запись: handle выбирается браузером случайно, коллизия —
// это повторная попытка логина.
func (s *Store) Create(handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[handle] = &pendingAuth{createdAt: s.now()}
}

// AttachResult сохраняет итог завершённого ботом handshake. Неизвестный
// или истёкший handle молча игнорируется: окно ожидания браузера могло
// уже закрыться, пока бот отвечал.
func (s *Store) AttachResult(handle, token string, profile models.TelegramProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[handle]
	if !ok || s.expired(entry) {
		logger.Warn().Str("state", handle).Msg("Auth result attached to unknown or expired state, dropping")
		return
	}
	entry.result = &models.AuthResult{Token: token, Profile: profile}
}

// Open сообщает, ждёт ли handle завершения (существует и не истёк).
func (s *Store) Open(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[handle]
	return ok && !s.expired(entry)
}

// Consume атомарно забирает итог handshake. Запись удаляется и при
// успехе, и при истёкшем TTL, поэтому итог выдаётся не более одного раза.
func (s *Store) Consume(handle string) (*models.AuthResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[handle]
	if !ok {
		return nil, ErrNotReady
	}
	if s.expired(entry) {
		delete(s.entries, handle)
		return nil, ErrNotReady
	}

	delete(s.entries, handle)
	if entry.result == nil {
		// Бот ещё не завершил handshake. Запись уже удалена: браузер
		// поллит новые попытки по новому handle.
		return nil, ErrNotReady
	}
	return entry.result, nil
}

// Len возвращает число незавершённых логинов в реестре.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) expired(entry *pendingAuth) bool {
	return s.now().Sub(entry.createdAt) > s.ttl
}

// StartJanitor запускает фоновую чистку истёкших записей. Корректность от
// неё не зависит (TTL проверяется на чтении), она лишь ограничивает рост
// памяти от брошенных логинов.
func (s *Store) StartJanitor(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-stop:
				return
			}
		}
	}(s.stop, s.done)
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for handle, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, handle)
			removed++
		}
	}
	if removed > 0 {
		logger.Debug().Int("removed", removed).Msg("Swept expired auth states")
	}
}

// Close останавливает janitor, если он был запущен.
func (s *Store) Close() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
