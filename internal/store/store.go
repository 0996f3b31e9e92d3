// Package store содержит единственный изменяемый контейнер состояния агрегатора.
package store

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"rssreader/internal/domain"
)

// Observer получает снимок состояния после каждой операции над хранилищем.
// Вызывается под блокировкой хранилища в порядке изменений, поэтому
// не должен блокироваться и обращаться к хранилищу.
type Observer interface {
	OnNotify(domain.State)
}

// ObserverFunc позволяет использовать функцию как Observer.
type ObserverFunc func(domain.State)

func (f ObserverFunc) OnNotify(s domain.State) { f(s) }

// Store хранит ленты, записи, ошибку и счетчик активных запросов.
// Каждая операция порождает ровно одно уведомление наблюдателей.
type Store struct {
	mu             sync.Mutex
	feeds          []domain.Feed
	posts          []domain.Post
	errMsg         *string
	errFromCycle   bool
	activeRequests int
	version        uint64
	observers      []Observer
}

func New() *Store {
	return &Store{}
}

// Subscribe регистрирует наблюдателя.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Snapshot возвращает независимую копию текущего состояния.
func (s *Store) Snapshot() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Acquire отмечает начало запроса к ретранслятору.
func (s *Store) Acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeRequests++
	s.notifyLocked()
}

// Release отмечает завершение запроса к ретранслятору.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeRequests == 0 {
		panic("store: Release without matching Acquire")
	}
	s.activeRequests--
	s.notifyLocked()
}

// RegisterFeed добавляет ленту и ее записи одной операцией и сбрасывает ошибку.
// Повторная регистрация URL возвращает domain.ErrDuplicateFeed без изменений.
// Возвращает записи, принятые при слиянии.
func (s *Store) RegisterFeed(feed domain.Feed, posts []domain.Post) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lo.ContainsBy(s.feeds, func(f domain.Feed) bool { return f.URL == feed.URL }) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateFeed, feed.URL)
	}
	s.feeds = append(s.feeds, feed)
	var accepted []domain.Post
	s.posts, accepted = domain.MergePosts(s.posts, []domain.FeedPosts{{Feed: feed, Posts: posts}})
	s.errMsg, s.errFromCycle = nil, false
	s.notifyLocked()
	return accepted, nil
}

// ApplyCycleResult применяет результаты цикла обновления одной операцией:
// сливает записи в порядке batches и обновляет ошибку.
// Непустой errMsg устанавливает ошибку; nil сбрасывает только ошибку,
// выставленную предыдущим циклом, ошибка регистрации ленты остается.
// Возвращает записи, принятые при слиянии.
func (s *Store) ApplyCycleResult(batches []domain.FeedPosts, errMsg *string) []domain.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	var accepted []domain.Post
	s.posts, accepted = domain.MergePosts(s.posts, batches)
	switch {
	case errMsg != nil:
		msg := *errMsg
		s.errMsg, s.errFromCycle = &msg, true
	case s.errFromCycle:
		s.errMsg, s.errFromCycle = nil, false
	}
	s.notifyLocked()
	return accepted
}

// SetError устанавливает глобальную ошибку.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg, s.errFromCycle = &msg, false
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	s.version++
	if len(s.observers) == 0 {
		return
	}
	state := s.snapshotLocked()
	for _, o := range s.observers {
		o.OnNotify(state)
	}
}

func (s *Store) snapshotLocked() domain.State {
	state := domain.State{
		Feeds:          append([]domain.Feed{}, s.feeds...),
		Posts:          append([]domain.Post{}, s.posts...),
		ActiveRequests: s.activeRequests,
		Loading:        s.activeRequests > 0,
		Version:        s.version,
	}
	if s.errMsg != nil {
		msg := *s.errMsg
		state.Error = &msg
	}
	return state
}
