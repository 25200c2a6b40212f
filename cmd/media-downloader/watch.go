package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/backend/extractor"
	"github.com/alanbriolat/media-downloader/internal/app"
)

const watchHelp = `Paste a URL to preview it. Commands:
  add [URL]   queue URL, or the last previewed URL
  get [URL]   download URL, or the last previewed URL, straight away
  start       download everything queued
  queue       list the queue
  quit        exit once running downloads finish
`

var watchCommand = &cli.Command{
	Name:  "watch",
	Usage: "read URLs and commands from stdin, previewing each URL as it is typed",
	Flags: requestFlags,
	Action: func(c *cli.Context) error {
		defaults, err := requestFromFlags(c)
		if err != nil {
			return err
		}
		out := c.App.Writer
		view := newConsoleView(out)
		w := &watcher{view: view, defaults: defaults}
		return runController(c, view, func(ctrl *app.Controller) error {
			w.ctrl = ctrl
			view.onDetected = w.detected
			view.onInfo = func(url string, info *media_downloader.MediaInfo) {
				if info.Error == "" {
					printInfo(out, url, info)
				}
			}
			view.onFinished = func(*media_downloader.DownloadResult) { w.closeIfIdle() }
			view.onDrained = w.closeIfIdle
			fmt.Fprint(out, watchHelp)
			go w.read(bufio.NewScanner(os.Stdin))
			return nil
		})
	},
}

// watcher turns lines of input into Controller calls. Every field is only used on the foreground.
type watcher struct {
	ctrl     *app.Controller
	view     *consoleView
	defaults media_downloader.DownloadRequest
	last     string
	quitting bool
}

func (w *watcher) read(scanner *bufio.Scanner) {
	for scanner.Scan() {
		line := scanner.Text()
		w.ctrl.Do(func() { w.handle(line) })
	}
	w.ctrl.Do(w.quit)
}

func (w *watcher) checkForUpdates(ctx context.Context) {
	_, version, err := extractor.UpdateYtDlp(ctx)
	w.ctrl.Do(func() {
		if err != nil {
			fmt.Fprintf(w.view.out, "yt-dlp update check failed: %v\n", err)
		} else {
			fmt.Fprintf(w.view.out, "yt-dlp %s ready\n", version)
		}
	})
}

func (w *watcher) handle(line string) {
	command, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	if arg == "" {
		arg = w.last
	}
	out := w.view.out
	switch command {
	case "":
	case "add":
		req := w.defaults
		req.URL = arg
		if id, err := w.ctrl.Enqueue(req, ""); err != nil {
			fmt.Fprintf(out, "Not queued: %v\n", err)
		} else {
			fmt.Fprintf(out, "Queued %s (%d in queue)\n", id, len(w.ctrl.Queue()))
		}
	case "get":
		req := w.defaults
		req.URL = arg
		if err := w.ctrl.Download(req); err != nil {
			fmt.Fprintf(out, "Not started: %v\n", err)
		}
	case "start":
		if err := w.ctrl.StartQueue(); err != nil {
			fmt.Fprintf(out, "Not started: %v\n", err)
		}
	case "queue":
		for _, item := range w.ctrl.Queue() {
			line := fmt.Sprintf("%-11s %s", item.Status, item.DisplayName())
			if item.Error != "" {
				line += ": " + media_downloader.Truncate(item.Error, 50)
			}
			fmt.Fprintln(out, line)
		}
	case "quit", "exit":
		w.quit()
	default:
		w.ctrl.URLChanged(line)
	}
}

func (w *watcher) detected(url string, platform media_downloader.PlatformID, ok bool) {
	switch {
	case url == "":
	case ok:
		w.last = url
		fmt.Fprintf(w.view.out, "%s URL detected, fetching info...\n", platform.Title())
	default:
		fmt.Fprintf(w.view.out, "Unsupported URL: %s\n", url)
	}
}

func (w *watcher) quit() {
	w.quitting = true
	w.closeIfIdle()
}

func (w *watcher) closeIfIdle() {
	if !w.quitting {
		return
	}
	if w.ctrl.IsDownloading() {
		fmt.Fprintln(w.view.out, "Waiting for downloads to finish...")
		return
	}
	w.ctrl.Close()
}
