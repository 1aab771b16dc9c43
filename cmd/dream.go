package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shouni/dreamcatcher-kit/internal/builder"
	"github.com/shouni/dreamcatcher-kit/internal/pipeline"
	"github.com/shouni/dreamcatcher-kit/pkg/domain"
	"github.com/shouni/dreamcatcher-kit/pkg/journal"
	"github.com/shouni/dreamcatcher-kit/pkg/reminder"

	"github.com/spf13/cobra"
)

var (
	rewriteText    string
	remindAt       string
	remindIn       time.Duration
	remindCategory string
)

// dreamCmd は夢日記そのものを操作するサブコマンドの親なのだ。
var dreamCmd = &cobra.Command{
	Use:   "dream",
	Short: "夢日記の記録、一覧、書き換え、通知の予約をするのだ。",
}

var dreamAddCmd = &cobra.Command{
	Use:   "add [夢の文章]",
	Short: "新しい夢を記録するのだ。",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *builder.AppContext, args []string) error {
		opts.Text = strings.Join(args, " ")
		text, err := pipeline.ReadInput(opts, os.Stdin)
		if err != nil {
			return err
		}
		d, err := app.Journal.Create(ctx, text, opts.Tone)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), d.ID)
		return nil
	}),
}

var dreamListCmd = &cobra.Command{
	Use:   "list",
	Short: "記録した夢を新しい順に表示するのだ。",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *builder.AppContext, _ []string) error {
		dreams, err := app.Journal.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tPANELS\tTEXT")
		for _, d := range dreams {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.ID, d.CreatedAt.Local().Format("2006-01-02 15:04"), len(d.Images), oneLine(d.DisplayText(), 40))
		}
		return w.Flush()
	}),
}

var dreamShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "夢の詳細を表示するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *builder.AppContext, args []string) error {
		d, err := app.Journal.Get(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:       %s\n", d.ID)
		fmt.Fprintf(out, "Created:  %s\n", d.CreatedAt.Local().Format(time.RFC3339))
		if d.Tone != "" {
			fmt.Fprintf(out, "Tone:     %s\n", d.Tone)
		}
		if d.ImageStyle != "" {
			fmt.Fprintf(out, "Style:    %s\n", d.ImageStyle)
		}
		fmt.Fprintf(out, "Panels:   %d\nPages:    %d\n\n%s\n", len(d.Images), len(d.Pages), d.Text)
		if d.RewrittenText != "" {
			fmt.Fprintf(out, "\n--- rewritten ---\n%s\n", d.RewrittenText)
		}
		return nil
	}),
}

var dreamDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "夢を削除するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, _ *cobra.Command, app *builder.AppContext, args []string) error {
		return app.Journal.Delete(ctx, args[0])
	}),
}

var dreamRewriteCmd = &cobra.Command{
	Use:   "rewrite <id>",
	Short: "夢を穏やかな文章に書き換えるのだ。--text で手直しした文章も保存できるよ。",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *builder.AppContext, args []string) error {
		var (
			d   domain.Dream
			err error
		)
		if cmd.Flags().Changed("text") {
			d, err = app.Journal.EditRewrite(ctx, args[0], rewriteText)
		} else {
			d, err = app.Journal.Rewrite(ctx, args[0], opts.Tone)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), d.DisplayText())
		return nil
	}),
}

var dreamRemindCmd = &cobra.Command{
	Use:   "remind <id>",
	Short: "夢に通知を予約して、その時刻まで待つのだ。",
	Args:  cobra.ExactArgs(1),
	RunE:  remindCommand,
}

func init() {
	dreamAddCmd.Flags().StringVarP(&opts.InputFile, "input-file", "f", "", "夢の文章を読むファイル（'-'で標準入力なのだ）。")
	dreamAddCmd.Flags().StringVar(&opts.Tone, "tone", "", "夢の雰囲気タグなのだ。")

	dreamRewriteCmd.Flags().StringVar(&opts.Tone, "tone", "", "書き換えの雰囲気なのだ（空なら記録時のタグ）。")
	dreamRewriteCmd.Flags().StringVar(&rewriteText, "text", "", "手直しした文章を保存するのだ（空文字で書き換えを取り消し）。")

	dreamRemindCmd.Flags().StringVar(&remindAt, "at", "", "通知する時刻 (RFC3339) なのだ。")
	dreamRemindCmd.Flags().DurationVar(&remindIn, "in", 0, "今からどれだけ後に通知するかなのだ。")
	dreamRemindCmd.Flags().StringVar(&remindCategory, "category", string(reminder.CategoryJournal), "通知の種類 (journal, rewrite, visualize) なのだ。")

	dreamCmd.AddCommand(dreamAddCmd, dreamListCmd, dreamShowCmd, dreamDeleteCmd, dreamRewriteCmd, dreamRemindCmd)
}

func remindCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	at, err := reminderTime(time.Now())
	if err != nil {
		return err
	}

	fired := make(chan reminder.Reminder, 1)
	sched := reminder.NewTimerScheduler(func(r reminder.Reminder) {
		fired <- r
	})
	defer sched.Stop()

	app, err := builder.Build(loadConfig(), journal.WithScheduler(sched))
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Journal.ScheduleReminder(ctx, args[0], at, reminder.Category(remindCategory)); err != nil {
		return fmt.Errorf("通知の予約に失敗したのだ: %w", err)
	}
	slog.Info("通知を予約したのだ", "dream_id", args[0], "at", at.Format(time.RFC3339))

	select {
	case r := <-fired:
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", r.Category, r.Message)
		return nil
	case <-ctx.Done():
		sched.Cancel(args[0])
		return ctx.Err()
	}
}

// reminderTime は --at と --in から通知時刻を決めるのだ。
func reminderTime(now time.Time) (time.Time, error) {
	switch {
	case remindAt != "":
		at, err := time.Parse(time.RFC3339, remindAt)
		if err != nil {
			return time.Time{}, fmt.Errorf("--at は RFC3339 で指定してほしいのだ: %w", domain.ErrInvalidArgument)
		}
		return at, nil
	case remindIn > 0:
		return now.Add(remindIn), nil
	default:
		return time.Time{}, fmt.Errorf("--at か --in を指定してほしいのだ: %w", domain.ErrInvalidArgument)
	}
}

// withApp は AppContext を組み立ててから本体を呼ぶ RunE を作るのだ。
func withApp(run func(ctx context.Context, cmd *cobra.Command, app *builder.AppContext, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := builder.Build(loadConfig())
		if err != nil {
			return err
		}
		defer app.Close()
		return run(cmd.Context(), cmd, app, args)
	}
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
