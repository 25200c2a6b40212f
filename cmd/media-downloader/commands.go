package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/alanbriolat/media-downloader"
	"github.com/alanbriolat/media-downloader/backend/social"
	"github.com/alanbriolat/media-downloader/internal/app"
	"github.com/alanbriolat/media-downloader/internal/store"
)

var requestFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "audio",
		Usage: "extract audio as MP3 (needs FFmpeg)",
	},
	&cli.StringFlag{
		Name:  "quality",
		Value: string(media_downloader.QualityBest),
		Usage: "maximum video height, e.g. `720`, or best",
	},
	&cli.BoolFlag{
		Name:  "subtitles",
		Usage: "also fetch subtitles (YouTube only)",
	},
	&cli.StringFlag{
		Name:  "content",
		Value: media_downloader.ContentAuto,
		Usage: "expected Instagram content: auto, post, reel or story",
	},
	&cli.StringFlag{
		Name:  "media",
		Value: media_downloader.MediaAuto,
		Usage: "Instagram media to keep: auto, video or image",
	},
	&cli.StringFlag{
		Name:  "template",
		Usage: "output file name `TEMPLATE`, e.g. %(title)s [%(id)s] (default from settings)",
	},
	&cli.StringFlag{
		Name:  "target",
		Usage: "save into `DIR` instead of the configured download folder",
	},
}

func requestFromFlags(c *cli.Context) (media_downloader.DownloadRequest, error) {
	quality, err := media_downloader.ParseQuality(c.String("quality"))
	if err != nil {
		return media_downloader.DownloadRequest{}, err
	}
	return media_downloader.DownloadRequest{
		Quality:          quality,
		AsAudio:          c.Bool("audio"),
		Subtitles:        c.Bool("subtitles"),
		ContentType:      c.String("content"),
		MediaMode:        c.String("media"),
		FilenameTemplate: c.String("template"),
		TargetDir:        c.String("target"),
	}, nil
}

// runController runs start on the foreground of a new Controller, then keeps the foreground going until something
// calls Close or the command is interrupted.
func runController(c *cli.Context, view *consoleView, start func(ctrl *app.Controller) error) error {
	config := app.DefaultConfig
	config.ConfigDir = c.String("config-dir")
	config.View = view
	ctrl, err := app.New(config, c.Context)
	if err != nil {
		return err
	}
	var startErr error
	ctrl.Do(func() {
		if startErr = start(ctrl); startErr != nil {
			ctrl.Close()
		}
	})
	err = ctrl.Run(c.Context)
	ctrl.Wait()
	view.clearBar()
	if startErr != nil {
		return startErr
	}
	if err != nil {
		return err
	}
	if view.failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", view.failed, view.failed+view.succeeded)
	}
	return nil
}

var downloadCommand = &cli.Command{
	Name:      "download",
	Usage:     "download one or more URLs; several are downloaded in turn through the queue",
	ArgsUsage: "URL...",
	Flags:     requestFlags,
	Action: func(c *cli.Context) error {
		urls := c.Args().Slice()
		if len(urls) == 0 {
			return app.ErrEmptyURL
		}
		req, err := requestFromFlags(c)
		if err != nil {
			return err
		}
		view := newConsoleView(c.App.Writer)
		return runController(c, view, func(ctrl *app.Controller) error {
			if len(urls) == 1 {
				view.onFinished = func(*media_downloader.DownloadResult) { ctrl.Close() }
				req.URL = urls[0]
				return ctrl.Download(req)
			}
			view.onDrained = ctrl.Close
			for _, url := range urls {
				r := req
				r.URL = url
				if _, err := ctrl.Enqueue(r, ""); err != nil {
					fmt.Fprintf(c.App.Writer, "Skipping %s: %v\n", url, err)
				}
			}
			return ctrl.StartQueue()
		})
	},
}

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "show what a URL would download",
	ArgsUsage: "URL",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return errors.New("expected exactly one URL")
		}
		view := newConsoleView(c.App.Writer)
		var infoErr error
		err := runController(c, view, func(ctrl *app.Controller) error {
			view.onInfo = func(url string, info *media_downloader.MediaInfo) {
				if infoErr = info.Err(); infoErr == nil {
					printInfo(c.App.Writer, url, info)
				}
				ctrl.Close()
			}
			return ctrl.FetchInfo(c.Args().First())
		})
		if err != nil {
			return err
		}
		return infoErr
	},
}

func readBatch(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	return string(data), err
}

var queueCommand = &cli.Command{
	Name:      "queue",
	Usage:     "download a batch of URLs one after another",
	ArgsUsage: "[URL...]",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "read URLs from `FILE`, one per line (- for stdin)",
		},
	}, requestFlags...),
	Action: func(c *cli.Context) error {
		text, err := readBatch(c.String("file"))
		if err != nil {
			return err
		}
		text += "\n" + strings.Join(c.Args().Slice(), "\n")
		defaults, err := requestFromFlags(c)
		if err != nil {
			return err
		}
		view := newConsoleView(c.App.Writer)
		return runController(c, view, func(ctrl *app.Controller) error {
			view.onDrained = ctrl.Close
			added := ctrl.ImportBatch(text, defaults)
			fmt.Fprintf(c.App.Writer, "Queued %d URLs\n", added)
			return ctrl.StartQueue()
		})
	},
}

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "list recent downloads",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "search",
			Usage: "only show downloads whose file name or platform contains `TEXT`",
		},
		&cli.IntFlag{
			Name:  "limit",
			Value: store.DefaultSearchLimit,
			Usage: "show at most `N` downloads",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "show totals instead of the list",
		},
		&cli.BoolFlag{
			Name:  "clear",
			Usage: "forget every download",
		},
	},
	Action: func(c *cli.Context) error {
		out := c.App.Writer
		return runController(c, newConsoleView(out), func(ctrl *app.Controller) error {
			defer ctrl.Close()
			switch {
			case c.Bool("clear"):
				if err := ctrl.ClearHistory(); err != nil {
					return err
				}
				fmt.Fprintln(out, "History cleared")
			case c.Bool("stats"):
				stats := ctrl.HistoryStats()
				fmt.Fprintf(out, "Downloads: %d\n", stats.Count)
				fmt.Fprintf(out, "Total:     %s\n", media_downloader.FormatSize(stats.TotalBytes))
				for _, p := range stats.TopPlatforms(3) {
					fmt.Fprintf(out, "%-10s %d\n", p+":", stats.Platforms[p])
				}
			default:
				records := ctrl.History(c.String("search"), c.Int("limit"))
				if len(records) == 0 {
					fmt.Fprintln(out, "No downloads yet")
				}
				for _, r := range records {
					fmt.Fprintf(out, "%s  %-11s %9s  %s\n", r.Date, r.Platform, r.Size, r.Filepath)
				}
			}
			return nil
		})
	},
}

var settingsCommand = &cli.Command{
	Name:  "settings",
	Usage: "show or change settings",
	Subcommands: []*cli.Command{
		{
			Name:  "show",
			Usage: "print every setting",
			Action: func(c *cli.Context) error {
				out := c.App.Writer
				return runController(c, newConsoleView(out), func(ctrl *app.Controller) error {
					defer ctrl.Close()
					settings := ctrl.Settings()
					for _, key := range store.Keys() {
						value, _ := settings.Get(key)
						fmt.Fprintf(out, "%s = %s\n", key, value)
					}
					return nil
				})
			},
		},
		{
			Name:      "set",
			Usage:     "change one setting",
			ArgsUsage: "KEY VALUE",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return fmt.Errorf("expected KEY VALUE, one of: %s", strings.Join(store.Keys(), ", "))
				}
				return runController(c, newConsoleView(c.App.Writer), func(ctrl *app.Controller) error {
					defer ctrl.Close()
					settings := ctrl.Settings()
					if err := settings.Set(c.Args().Get(0), c.Args().Get(1)); err != nil {
						return err
					}
					return ctrl.SaveSettings(settings)
				})
			},
		},
	},
}

func prompt(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var loginCommand = &cli.Command{
	Name:  "login",
	Usage: "sign in to Instagram so that private posts and stories can be downloaded",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}},
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"MEDIA_DOWNLOADER_PASSWORD"}},
	},
	Action: func(c *cli.Context) error {
		in := bufio.NewReader(os.Stdin)
		out := c.App.Writer
		username, password := c.String("username"), c.String("password")
		var err error
		if username == "" {
			if username, err = prompt(in, out, "Username: "); err != nil {
				return err
			}
		}
		if password == "" {
			if password, err = prompt(in, out, "Password: "); err != nil {
				return err
			}
		}

		view := newConsoleView(out)
		var loginErr error
		err = runController(c, view, func(ctrl *app.Controller) error {
			view.onAuth = func(state social.AuthState, name string, err error) {
				switch {
				case err == nil:
					fmt.Fprintf(out, "Logged in as %s\n", name)
					ctrl.Close()
				case errors.Is(err, social.ErrTwoFactorRequired), errors.Is(err, social.ErrInvalidCode):
					code, promptErr := prompt(in, out, "Verification code: ")
					if promptErr != nil {
						loginErr = promptErr
						ctrl.Close()
					} else if err := ctrl.LoginWithTwoFactor(username, password, code); err != nil {
						loginErr = err
						ctrl.Close()
					}
				default:
					loginErr = err
					ctrl.Close()
				}
			}
			return ctrl.Login(username, password)
		})
		if err != nil {
			return err
		}
		return loginErr
	},
}

var logoutCommand = &cli.Command{
	Name:  "logout",
	Usage: "sign out of Instagram and delete the saved session",
	Action: func(c *cli.Context) error {
		out := c.App.Writer
		return runController(c, newConsoleView(out), func(ctrl *app.Controller) error {
			defer ctrl.Close()
			_, username := ctrl.Account()
			ctrl.Logout()
			if username != "" {
				fmt.Fprintf(out, "Logged out %s\n", username)
			} else {
				fmt.Fprintln(out, "Not logged in")
			}
			return nil
		})
	},
}
