package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shouni/dreamcatcher-kit/pkg/domain"
)

// run は rootCmd を引数付きで実行して標準出力を返すのだ。
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DREAM_STORE", filepath.Join(t.TempDir(), "dreams.json"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DREAMCATCHER_BACKEND_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func TestDreamCommands(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "dream", "add", "--tone", "calm", "I floated above a quiet lake.")
	if err != nil {
		t.Fatalf("add に失敗したのだ: %v", err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		t.Fatal("ID が出力されていないのだ")
	}

	out, err = run(t, "dream", "list")
	if err != nil {
		t.Fatalf("list に失敗したのだ: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "quiet lake") {
		t.Errorf("list の出力に夢が無いのだ:\n%s", out)
	}

	out, err = run(t, "dream", "rewrite", id, "--text", "Still water under the moon.")
	if err != nil {
		t.Fatalf("rewrite に失敗したのだ: %v", err)
	}
	if strings.TrimSpace(out) != "Still water under the moon." {
		t.Errorf("rewrite の出力 = %q", out)
	}

	out, err = run(t, "dream", "show", id)
	if err != nil {
		t.Fatalf("show に失敗したのだ: %v", err)
	}
	for _, want := range []string{id, "Tone:     calm", "I floated above a quiet lake.", "Still water under the moon."} {
		if !strings.Contains(out, want) {
			t.Errorf("show の出力に %q が無いのだ:\n%s", want, out)
		}
	}

	out, err = run(t, "dream", "remind", id, "--in", "300ms", "--category", "rewrite")
	if err != nil {
		t.Fatalf("remind に失敗したのだ: %v", err)
	}
	if !strings.HasPrefix(out, "[rewrite] Still water") {
		t.Errorf("remind の出力 = %q", out)
	}

	if _, err := run(t, "dream", "delete", id); err != nil {
		t.Fatalf("delete に失敗したのだ: %v", err)
	}
	if _, err := run(t, "dream", "show", id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("削除後の show は ErrNotFound のはずなのだ: %v", err)
	}
}

func TestGenerate_NoProvider(t *testing.T) {
	isolateEnv(t)
	opts.DreamID = ""
	opts.InputFile = ""

	_, err := run(t, "generate", "--output-dir", t.TempDir(), "The ocean at dawn.")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("err = %v, ErrProviderUnavailable を期待したのだ", err)
	}
}

func TestReminderTime(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	t.Cleanup(func() { remindAt, remindIn = "", 0 })

	remindAt, remindIn = "", 0
	if _, err := reminderTime(now); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("指定なしは ErrInvalidArgument のはずなのだ: %v", err)
	}

	remindIn = time.Hour
	if got, _ := reminderTime(now); !got.Equal(now.Add(time.Hour)) {
		t.Errorf("--in: got %v", got)
	}

	remindAt = "2026-10-16T07:30:00Z"
	got, err := reminderTime(now)
	if err != nil || !got.Equal(time.Date(2026, 10, 16, 7, 30, 0, 0, time.UTC)) {
		t.Errorf("--at: got %v, %v", got, err)
	}

	remindAt = "tomorrow"
	if _, err := reminderTime(now); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("不正な --at は ErrInvalidArgument のはずなのだ: %v", err)
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\n  b   c", 10); got != "a b c" {
		t.Errorf("got %q", got)
	}
	if got := oneLine("夢の中で空を飛んだ", 4); got != "夢の中で…" {
		t.Errorf("got %q", got)
	}
}
