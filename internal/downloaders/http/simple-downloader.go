package rangehttp

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rangedl/internal/controller"
)

func (d *Downloader) downloadSingle(ctx context.Context, link, outputPath string, size int64, ctrl *controller.Controller) (Result, error) {
	if size == 0 {
		log.Info().Str("op", "http/simple-downloader").Msgf("Failed to get file size, directly downloading %s", link)
	} else {
		log.Info().Str("op", "http/simple-downloader").Msgf("Downloading %s (%d) to %s with single mode", link, size, outputPath)
		if ctrl != nil {
			ctrl.SetTotalSize(size)
		}
	}
	result := Result{Size: size, Mode: ModeSingle}
	if err := preallocate(outputPath, size); err != nil {
		return result, err
	}

	startTime := time.Now()
	err := d.newTransfer(link, outputPath, Range{}, true, size, ctrl).run(ctx)
	result.Elapsed = time.Since(startTime)
	if err != nil {
		return result, err
	}
	log.Info().Str("op", "http/simple-downloader").Msgf("Downloaded %s (%d) to %s with single mode in %s", link, size, outputPath, result.Elapsed)
	return result, nil
}
