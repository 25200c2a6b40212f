package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/alanbriolat/media-downloader/backend/extractor"
)

var updateCommand = &cli.Command{
	Name:  "update",
	Usage: "download the yt-dlp release this build supports into the user cache",
	Action: func(c *cli.Context) error {
		fmt.Fprintln(c.App.Writer, "Checking yt-dlp...")
		executable, version, err := extractor.UpdateYtDlp(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "yt-dlp %s at %s\n", version, executable)
		return nil
	},
}
