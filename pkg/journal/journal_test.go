package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/reminder"
	"github.com/shouni/dreamcatcher-kit/pkg/store"
)

// recordingScheduler は予約と取り消しを記録するだけの Scheduler です。
type recordingScheduler struct {
	scheduled []reminder.Reminder
	cancelled []string
	err       error
}

func (r *recordingScheduler) Schedule(rem reminder.Reminder) error {
	if r.err != nil {
		return r.err
	}
	r.scheduled = append(r.scheduled, rem)
	return nil
}

func (r *recordingScheduler) Cancel(id string) { r.cancelled = append(r.cancelled, id) }

func (r *recordingScheduler) Pending() []reminder.Reminder { return r.scheduled }

type fakeRewriter struct {
	gotText, gotTone string
	out              string
	err              error
}

func (f *fakeRewriter) Rewrite(_ context.Context, text, tone string) (string, error) {
	f.gotText, f.gotTone = text, tone
	return f.out, f.err
}

// steppingClock は呼ばれるたびに1分ずつ進む時計です。
func steppingClock() func() time.Time {
	t := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newTestService(opts ...Option) (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewService(st, append([]Option{WithClock(steppingClock())}, opts...)...), st
}

func TestCreateGetList(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService()

	first, err := svc.Create(ctx, "  I was on a train.  ", "curious")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := svc.Create(ctx, "Then the sea.", "")
	if first.Text != "I was on a train." || first.Tone != "curious" || first.ID == "" {
		t.Errorf("作成結果が想定外: %+v", first)
	}

	got, err := svc.Get(ctx, first.ID)
	if err != nil || got.ID != first.ID {
		t.Errorf("取得できない: %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("新しい順になっていないのだ: %v", list)
	}

	persisted, _ := st.Load(ctx)
	if len(persisted) != 2 {
		t.Errorf("保存されていないのだ: %d 件", len(persisted))
	}

	if _, err := svc.Create(ctx, "   ", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("ErrInvalidArgument を期待したのに %v", err)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ErrNotFound を期待したのに %v", err)
	}
}

func TestRewriteFlow(t *testing.T) {
	ctx := context.Background()
	rw := &fakeRewriter{out: "You float gently."}
	svc, _ := newTestService(WithRewriter(rw))
	d, _ := svc.Create(ctx, "I fell.", "scary")

	got, err := svc.Rewrite(ctx, d.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.RewrittenText != "You float gently." || got.DisplayText() != "You float gently." {
		t.Errorf("書き換えが保存されていない: %+v", got)
	}
	if rw.gotText != "I fell." || rw.gotTone != "scary" {
		t.Errorf("Rewriter への入力が想定外: %q %q", rw.gotText, rw.gotTone)
	}

	got, _ = svc.EditRewrite(ctx, d.ID, " You float, smiling. ")
	if got.RewrittenText != "You float, smiling." {
		t.Errorf("手での修正が保存されていない: %q", got.RewrittenText)
	}
	got, _ = svc.EditRewrite(ctx, d.ID, "")
	if got.DisplayText() != "I fell." {
		t.Errorf("空にしたら元の文章に戻るはず: %q", got.DisplayText())
	}

	if _, err := svc.SaveRewrite(ctx, d.ID, " "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("ErrInvalidArgument を期待したのに %v", err)
	}

	rw.err = errors.New("model busy")
	if _, err := svc.Rewrite(ctx, d.ID, "calm"); err == nil {
		t.Error("Rewriter のエラーが伝わっていないのだ")
	}

	plain, _ := newTestService()
	if _, err := plain.Rewrite(ctx, d.ID, ""); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("ErrProviderUnavailable を期待したのに %v", err)
	}
}

func TestAttachImagesAndPages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	d, _ := svc.Create(ctx, "A lake. A moon.", "")

	now := time.Now()
	images := []domain.GeneratedImage{
		domain.NewGeneratedImage([]byte("b"), "image/png", "moon", domain.StyleAnime, 1, now),
		domain.NewGeneratedImage([]byte("a"), "image/png", "lake", domain.StyleAnime, 0, now),
	}
	plans := []domain.PanelPlan{{PanelNumber: 1, Caption: "A lake."}, {PanelNumber: 2, Caption: "A moon."}}
	got, err := svc.AttachImages(ctx, d.ID, images, plans, domain.StyleAnime)
	if err != nil {
		t.Fatal(err)
	}
	if got.ImageStyle != domain.StyleAnime || len(got.Images) != 2 || got.Images[0].Prompt != "lake" {
		t.Errorf("画像が並べ替えて保存されていない: %+v", got.Images)
	}
	if len(got.Plans) != 2 || got.Plans[1].Caption != "A moon." {
		t.Errorf("パネル構成が保存されていない: %+v", got.Plans)
	}
	if images[0].Prompt != "moon" {
		t.Error("呼び出し元のスライスを書き換えてしまったのだ")
	}

	got, err = svc.AttachPages(ctx, d.ID, []domain.ComicPage{{PageNumber: 2}, {PageNumber: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if sp := got.SortedPages(); sp[0].PageNumber != 1 {
		t.Errorf("ページ順が想定外: %+v", sp)
	}

	// 差し替えなので前の画像は残らない
	got, _ = svc.AttachImages(ctx, d.ID, images[:1], nil, domain.StyleSketch)
	if len(got.Images) != 1 || got.ImageStyle != domain.StyleSketch || len(got.Plans) != 0 || len(got.Pages) != 0 {
		t.Errorf("差し替えになっていない: %+v", got)
	}

	if _, err := svc.AttachPages(ctx, "missing", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ErrNotFound を期待したのに %v", err)
	}
}

func TestReminderAndDeleteCascade(t *testing.T) {
	ctx := context.Background()
	sched := &recordingScheduler{}
	svc, st := newTestService(WithScheduler(sched))
	d, _ := svc.Create(ctx, strings.Repeat("long dream ", 20), "")

	at := time.Now().Add(time.Hour)
	if err := svc.ScheduleReminder(ctx, d.ID, at, reminder.CategoryRewrite); err != nil {
		t.Fatal(err)
	}
	if len(sched.scheduled) != 1 || sched.scheduled[0].DreamID != d.ID || sched.scheduled[0].Category != reminder.CategoryRewrite {
		t.Fatalf("予約内容が想定外: %+v", sched.scheduled)
	}
	if msg := sched.scheduled[0].Message; !strings.HasSuffix(msg, "…") || len([]rune(msg)) != 61 {
		t.Errorf("通知本文が切り詰められていない: %q", msg)
	}

	if err := svc.ScheduleReminder(ctx, "missing", at, reminder.CategoryJournal); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ErrNotFound を期待したのに %v", err)
	}

	if err := svc.Delete(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if len(sched.cancelled) != 1 || sched.cancelled[0] != d.ID {
		t.Errorf("削除時に通知が取り消されていないのだ: %v", sched.cancelled)
	}
	if left, _ := st.Load(ctx); len(left) != 0 {
		t.Errorf("削除されていない: %d 件", len(left))
	}
	if err := svc.Delete(ctx, d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("二重削除で ErrNotFound を期待したのに %v", err)
	}
}

func TestScheduleReminderWithRealScheduler(t *testing.T) {
	ctx := context.Background()
	sched := reminder.NewTimerScheduler(nil)
	defer sched.Stop()
	svc, _ := newTestService(WithScheduler(sched))
	d, _ := svc.Create(ctx, "Stars.", "")

	if err := svc.ScheduleReminder(ctx, d.ID, time.Now().Add(-time.Hour), reminder.CategoryJournal); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("過去の時刻で ErrInvalidArgument を期待したのに %v", err)
	}
	if err := svc.ScheduleReminder(ctx, d.ID, time.Now().Add(time.Hour), reminder.CategoryJournal); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if len(sched.Pending()) != 0 {
		t.Error("削除後も予約が残っているのだ")
	}
}
