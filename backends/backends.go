// Package backends registers every Backend with media_downloader.DefaultBackendRegistry. Import it for side effects.
package backends

import (
	_ "github.com/alanbriolat/media-downloader/backend/extractor"
	_ "github.com/alanbriolat/media-downloader/backend/social"
)
