package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"todo-app-backend/internal/dto"
	"todo-app-backend/internal/env"
	"todo-app-backend/internal/logger"
	"todo-app-backend/internal/realtime"

	"github.com/docopt/docopt-go"
)

const version = "0.1.0"

const defaultURL = "ws://localhost:3001/ws"

func main() {
	usage := fmt.Sprintf(`Follow the realtime events of one todo list.

The default url is:
    url: %s

Usage:
    list-watch --list=<list_id> [--url=<url>] [--count=<count>]
    list-watch -h | --help
    list-watch --version

Options:
    -h --help          Show this screen.
    --version          Show version.
    --list=<list_id>   List to join.
    --url=<url>        Relay websocket url.
    --count=<count>    Exit after this many events. 0 follows until interrupted [default: 0].`,
		defaultURL,
	)

	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		panic(err)
	}

	env.Load()
	log := logger.Init(logger.Config{
		Service: "list-watch",
		Version: version,
		Env:     env.GetOrDefault(env.AppEnv, "dev"),
		Backend: logger.Backend(env.GetOrDefault(env.LogBackend, string(logger.BackendStd))),
		Level:   logger.ParseLevel(env.Get(env.LogLevel)),
		Output:  os.Stderr,
	})

	listID, _ := opts.String("--list")
	url, _ := opts.String("--url")
	if url == "" {
		url = defaultURL
	}
	countRaw, _ := opts.String("--count")
	limit, err := strconv.Atoi(countRaw)
	if err != nil || limit < 0 {
		fmt.Fprintf(os.Stderr, "invalid --count: %q\n", countRaw)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := newWatcher(limit)
	client := realtime.New(url, nil, realtime.DefaultSettings(), log)

	client.OnStateChange(func(s realtime.State) {
		log.Info("connection", "state", s.String())
	})
	client.OnTodoAdded(func(t dto.Todo) {
		log.Info("todo-added", "todo_id", t.ID, "task", t.TaskName, "status", t.Status, "priority", t.Priority)
		w.seen()
	})
	client.OnTodoUpdated(func(t dto.Todo) {
		log.Info("todo-updated", "todo_id", t.ID, "task", t.TaskName, "status", t.Status, "priority", t.Priority)
		w.seen()
	})
	client.OnTodoDeleted(func(d dto.TodoDeleted) {
		log.Info("todo-deleted", "todo_id", d.TodoID)
		w.seen()
	})
	client.OnListUpdated(func(l dto.List) {
		log.Info("list-updated", "name", l.Name, "tasks", l.TaskCount, "completed", l.CompletedTaskCount)
		w.seen()
	})

	if err := client.JoinList(listID); err != nil {
		log.Error("join failed", "list_id", listID, "error", err)
		os.Exit(1)
	}
	client.Start()
	log.Info("watching list", "list_id", listID, "url", url)

	select {
	case <-ctx.Done():
	case <-w.done:
		log.Info("event limit reached", "count", limit)
	}
	client.Close()
}

// watcher closes done once limit events were seen. A zero limit never closes.
type watcher struct {
	limit int
	count int
	once  sync.Once
	done  chan struct{}
}

func newWatcher(limit int) *watcher {
	return &watcher{limit: limit, done: make(chan struct{})}
}

// seen is only called from the client's dispatch goroutine.
func (w *watcher) seen() {
	w.count++
	if w.limit > 0 && w.count >= w.limit {
		w.once.Do(func() { close(w.done) })
	}
}
