package app

import (
	"sync"

	"quiz-app-service/internal/domain"
)

// StatsFeed fans quiz stats snapshots out to live subscribers, one topic per quiz.
type StatsFeed struct {
	mu     sync.Mutex
	topics map[string]*feedTopic
}

type feedTopic struct {
	last        domain.QuizStatsSnapshot
	hasLast     bool
	subscribers map[chan domain.QuizStatsSnapshot]struct{}
}

func NewStatsFeed() *StatsFeed {
	return &StatsFeed{topics: make(map[string]*feedTopic)}
}

// Subscribe registers a subscriber for quizID. The initial snapshot is delivered first
// unless the topic already holds a newer one. The caller must invoke cancel to avoid leaks.
func (f *StatsFeed) Subscribe(quizID string, initial domain.QuizStatsSnapshot) (<-chan domain.QuizStatsSnapshot, func()) {
	ch := make(chan domain.QuizStatsSnapshot, 8)

	f.mu.Lock()
	topic, ok := f.topics[quizID]
	if !ok {
		topic = &feedTopic{subscribers: make(map[chan domain.QuizStatsSnapshot]struct{})}
		f.topics[quizID] = topic
	}
	if !topic.hasLast || topic.last.Attempts < initial.Attempts {
		topic.last = initial
		topic.hasLast = true
	}
	topic.subscribers[ch] = struct{}{}
	ch <- topic.last
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		topic, ok := f.topics[quizID]
		if !ok {
			return
		}
		if _, ok := topic.subscribers[ch]; ok {
			delete(topic.subscribers, ch)
			close(ch)
		}
		if len(topic.subscribers) == 0 {
			delete(f.topics, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers snap to every subscriber of its quiz. Quizzes nobody watches are skipped.
func (f *StatsFeed) Publish(snap domain.QuizStatsSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	topic, ok := f.topics[snap.QuizID]
	if !ok {
		return
	}
	topic.last = snap
	topic.hasLast = true
	for ch := range topic.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow consumer: drop its oldest pending snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// Subscribers reports how many subscribers watch quizID.
func (f *StatsFeed) Subscribers(quizID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic, ok := f.topics[quizID]; ok {
		return len(topic.subscribers)
	}
	return 0
}
