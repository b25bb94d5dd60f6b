package tools

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/service"
)

// ErrSchedulerStopped is returned by Schedule after Stop.
var ErrSchedulerStopped = errors.New("scheduler stopped")

const defaultPublishTimeout = 30 * time.Second

// ScheduledPost is a social post waiting for its publish time.
type ScheduledPost struct {
	ID        string    `json:"schedule_id"`
	Platform  string    `json:"platform"`
	Content   string    `json:"content"`
	MediaURLs []string  `json:"media_urls,omitempty"`
	At        time.Time `json:"scheduled_for"`
}

type pendingPost struct {
	post  ScheduledPost
	timer *time.Timer
}

// Scheduler publishes posts at a later time. Pending posts live in memory
// only and are lost on restart.
type Scheduler struct {
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingPost
	stopped bool
}

// NewScheduler bounds each deferred publish by timeout; zero uses a default.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Scheduler{timeout: timeout, pending: make(map[string]*pendingPost)}
}

// Schedule arranges for publish to run at post.At and returns the post with
// its assigned id.
func (s *Scheduler) Schedule(post ScheduledPost, publish func(context.Context) (*service.PostReceipt, error)) (ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ScheduledPost{}, ErrSchedulerStopped
	}

	post.ID = uuid.NewString()
	p := &pendingPost{post: post}
	p.timer = time.AfterFunc(time.Until(post.At), func() { s.fire(post, publish) })
	s.pending[post.ID] = p

	log.Info().Str("schedule_id", post.ID).Str("platform", post.Platform).Time("at", post.At).Msg("Post scheduled")
	return post, nil
}

func (s *Scheduler) fire(post ScheduledPost, publish func(context.Context) (*service.PostReceipt, error)) {
	s.mu.Lock()
	_, ok := s.pending[post.ID]
	delete(s.pending, post.ID)
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rc, err := publish(ctx)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", post.ID).Str("platform", post.Platform).Msg("Scheduled post failed")
		return
	}
	log.Info().Str("schedule_id", post.ID).Str("platform", post.Platform).Str("post_id", rc.ID).Msg("Scheduled post published")
}

// Pending lists waiting posts, earliest first.
func (s *Scheduler) Pending() []ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledPost, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Cancel drops a pending post. It reports false when the id is unknown or
// the post has already fired.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, id)
	return true
}

// Stop cancels every pending post.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}
