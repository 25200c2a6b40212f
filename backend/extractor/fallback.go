package extractor

import (
	"context"

	"go.uber.org/zap"
)

// FallbackEngine uses Secondary only when Primary cannot run at all because its executable is missing. Any other
// Primary failure is returned as is.
type FallbackEngine struct {
	Primary   Engine
	Secondary Engine
}

func (e *FallbackEngine) Download(ctx context.Context, url string, opts Options, hook func(ProgressEvent)) (*Info, error) {
	info, err := e.Primary.Download(ctx, url, opts, hook)
	if IsMissingExecutable(err) {
		zap.S().Named("extractor").Infof("primary engine unavailable (%v), using fallback", err)
		return e.Secondary.Download(ctx, url, opts, hook)
	}
	return info, err
}

func (e *FallbackEngine) Probe(ctx context.Context, url string) (*Info, error) {
	info, err := e.Primary.Probe(ctx, url)
	if IsMissingExecutable(err) {
		return e.Secondary.Probe(ctx, url)
	}
	return info, err
}
