package reminder

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// Category は通知の種類です。
type Category string

const (
	CategoryJournal Category = "journal"
	CategoryRewrite Category = "rewrite"
	CategoryVisual  Category = "visualize"
)

// Reminder は1件の夢に紐づく通知予定です。
type Reminder struct {
	DreamID  string
	At       time.Time
	Category Category
	Message  string
}

// Scheduler は夢ごとに1件の通知を管理します。
type Scheduler interface {
	Schedule(r Reminder) error
	Cancel(dreamID string)
	Pending() []Reminder
}

// stopper は *time.Timer のうち停止だけを切り出したものです。
type stopper interface {
	Stop() bool
}

type entry struct {
	reminder Reminder
	timer    stopper
}

// TimerScheduler はプロセス内のタイマーで通知を発火させる Scheduler です。
type TimerScheduler struct {
	fire      func(Reminder)
	now       func() time.Time
	afterFunc func(time.Duration, func()) stopper

	mu      sync.Mutex
	entries map[string]*entry
}

// Option は TimerScheduler の設定を変更する関数です。
type Option func(*TimerScheduler)

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(s *TimerScheduler) { s.now = now }
}

func withAfterFunc(f func(time.Duration, func()) stopper) Option {
	return func(s *TimerScheduler) { s.afterFunc = f }
}

// NewTimerScheduler は fire を通知先とする TimerScheduler を生成します。
func NewTimerScheduler(fire func(Reminder), opts ...Option) *TimerScheduler {
	s := &TimerScheduler{
		fire: fire,
		now:  time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule は通知を予約します。同じ夢に既存の予約があれば置き換えるのだ。
// 過去の時刻は domain.ErrInvalidArgument です。
func (s *TimerScheduler) Schedule(r Reminder) error {
	if strings.TrimSpace(r.DreamID) == "" {
		return fmt.Errorf("夢の ID が空です: %w", domain.ErrInvalidArgument)
	}
	delay := r.At.Sub(s.now())
	if delay <= 0 {
		return fmt.Errorf("通知時刻 %s は過去です: %w", r.At.Format(time.RFC3339), domain.ErrInvalidArgument)
	}
	if r.Category == "" {
		r.Category = CategoryJournal
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[r.DreamID]; ok {
		old.timer.Stop()
	}
	e := &entry{reminder: r}
	e.timer = s.afterFunc(delay, func() { s.deliver(e) })
	s.entries[r.DreamID] = e

	slog.Info("通知を予約しました", "dream_id", r.DreamID, "at", r.At.Format(time.RFC3339), "category", r.Category)
	return nil
}

// deliver は予約がまだ有効なら一覧から外して通知します。
func (s *TimerScheduler) deliver(e *entry) {
	s.mu.Lock()
	current, ok := s.entries[e.reminder.DreamID]
	if !ok || current != e {
		s.mu.Unlock()
		return
	}
	delete(s.entries, e.reminder.DreamID)
	s.mu.Unlock()

	if s.fire != nil {
		s.fire(e.reminder)
	}
}

// Cancel は夢の予約を取り消します。予約が無ければ何もしません。
func (s *TimerScheduler) Cancel(dreamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[dreamID]; ok {
		e.timer.Stop()
		delete(s.entries, dreamID)
		slog.Info("通知の予約を取り消しました", "dream_id", dreamID)
	}
}

// Pending は未発火の予約を時刻順に返します。
func (s *TimerScheduler) Pending() []Reminder {
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.reminder)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].DreamID < out[j].DreamID
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}

// Stop はすべての予約を取り消します。
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
}
