package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/kazz187/taskflow/internal/client"
	"github.com/kazz187/taskflow/internal/task"
	"github.com/kazz187/taskflow/pkg/cerr"
	"github.com/kazz187/taskflow/pkg/clog"
)

var (
	app       = kingpin.New("taskflow", "Command line client for a TaskFlow server")
	serverURL = app.Flag("server", "TaskFlow server URL").Envar("TASKFLOW_SERVER_URL").Default("http://localhost:5000").String()
	timeout   = app.Flag("timeout", "Per-request timeout").Default("30s").Duration()
	verbose   = app.Flag("verbose", "Log debug output to stderr").Short('v').Bool()

	listCmd = app.Command("list", "List all tasks, newest first")

	createCmd         = app.Command("create", "Create a new task")
	createTitle       = createCmd.Arg("title", "Task title").Required().String()
	createDescription = createCmd.Flag("description", "Task description").Short('d').String()
	createEnhance     = createCmd.Flag("enhance", "Rewrite the description with the configured AI provider first").Bool()

	statusCmd   = app.Command("status", "Change the status of a task")
	statusID    = statusCmd.Arg("id", "Task ID").Required().String()
	statusValue = statusCmd.Arg("status", "New status").Required().Enum(
		task.StatusPending.String(), task.StatusInProgress.String(), task.StatusCompleted.String())

	deleteCmd = app.Command("delete", "Delete a task")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()

	watchCmd            = app.Command("watch", "Follow the task list live")
	watchReconnectDelay = watchCmd.Flag("reconnect-delay", "Delay before reconnecting a lost event stream").Default("3s").Duration()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(clog.NewTextHandler(os.Stderr, clog.WithLevel(level))))

	c, err := client.New(*serverURL, nil)
	app.FatalIfError(err, "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case listCmd.FullCommand():
		err = runList(ctx, c)
	case createCmd.FullCommand():
		err = runCreate(ctx, c)
	case statusCmd.FullCommand():
		err = runStatus(ctx, c)
	case deleteCmd.FullCommand():
		err = runDelete(ctx, c)
	case watchCmd.FullCommand():
		err = runWatch(ctx, c)
	}
	if code := report(os.Stderr, err); code != 0 {
		stop()
		os.Exit(code)
	}
}

// report prints a failed command and returns the process exit status.
// Interrupting with a signal is not a failure.
func report(w io.Writer, err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	fmt.Fprintf(w, "taskflow: %s\n", describe(err))
	return 1
}

func requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, *timeout)
}

func runList(ctx context.Context, c *client.Client) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()
	tasks, err := c.List(ctx)
	if err != nil {
		return err
	}
	printTasks(os.Stdout, tasks)
	return nil
}

func runCreate(ctx context.Context, c *client.Client) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()

	req := client.CreateRequest{Title: *createTitle, Description: *createDescription}
	if *createEnhance {
		res, err := c.Enhance(ctx, req.Title, req.Description)
		if err != nil {
			return err
		}
		req.Description = res.Description
		req.IsAIEnhanced = res.Enhanced
		if !res.Enhanced {
			color.New(color.FgYellow).Fprintln(os.Stderr, "AI enhancement unavailable, using the original description")
		}
	}
	t, err := c.Create(ctx, req)
	if err != nil {
		return err
	}
	printTask(os.Stdout, t)
	return nil
}

func runStatus(ctx context.Context, c *client.Client) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()
	t, err := c.SetStatus(ctx, *statusID, task.Status(*statusValue))
	if err != nil {
		return err
	}
	printTask(os.Stdout, t)
	return nil
}

func runDelete(ctx context.Context, c *client.Client) error {
	ctx, cancel := requestContext(ctx)
	defer cancel()
	if err := c.Delete(ctx, *deleteID); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "deleted %s\n", *deleteID)
	return nil
}

func runWatch(ctx context.Context, c *client.Client) error {
	sync := client.NewSynchronizer()
	session := client.NewSession(c, sync, client.WithReconnectDelay(*watchReconnectDelay))

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	for {
		select {
		case err := <-done:
			return err
		case <-sync.Changed():
			// Clear the screen and redraw.
			fmt.Fprint(os.Stdout, "\033[H\033[2J")
			fmt.Fprintf(os.Stdout, "%s  %s\n\n", color.New(color.Bold).Sprint("TaskFlow"), time.Now().Format(time.TimeOnly))
			printTasks(os.Stdout, sync.Snapshot())
		}
	}
}

func statusColor(s task.Status) *color.Color {
	switch s {
	case task.StatusCompleted:
		return color.New(color.FgGreen)
	case task.StatusInProgress:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func printTasks(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		printTask(w, t)
	}
}

func printTask(w io.Writer, t *task.Task) {
	ai := ""
	if t.IsAIEnhanced {
		ai = color.New(color.FgMagenta).Sprint(" [AI]")
	}
	fmt.Fprintf(w, "%s  %s %s%s\n",
		color.New(color.Faint).Sprint(t.ID),
		statusColor(t.Status).Sprintf("%-11s", t.Status),
		t.Title,
		ai,
	)
	if t.Description != "" {
		fmt.Fprintf(w, "    %s\n", t.Description)
	}
}

func describe(err error) string {
	var cErr *cerr.Error
	if errors.As(err, &cErr) {
		return fmt.Sprintf("%s (%s)", cErr.Msg, cErr.Code)
	}
	return err.Error()
}
