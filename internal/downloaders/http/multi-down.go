package rangehttp

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rangedl/internal/controller"
	"golang.org/x/sync/errgroup"
)

// downloadSliced runs one transfer per partition concurrently. The first
// unrecovered failure cancels the remaining transfers and is returned once
// all of them have stopped; the partially written file is left in place.
func (d *Downloader) downloadSliced(ctx context.Context, link, outputPath string, size int64, ctrl *controller.Controller) (Result, error) {
	log.Info().Str("op", "http/multi-down").Msgf("Downloading %s (%d) to %s with slicing mode", link, size, outputPath)
	if ctrl != nil {
		ctrl.SetTotalSize(size)
	}
	result := Result{Size: size, Mode: ModeSliced}

	ranges := Partition(size, d.cfg.CoroutineLimit)
	if err := preallocate(outputPath, size); err != nil {
		return result, err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	startTime := time.Now()
	for _, rng := range ranges {
		transfer := d.newTransfer(link, outputPath, rng, false, rng.Size(), ctrl)
		group.Go(func() error {
			return transfer.run(groupCtx)
		})
	}
	err := group.Wait()
	result.Elapsed = time.Since(startTime)
	if err != nil {
		log.Error().Str("op", "http/multi-down").Err(err).Msgf("Slicing download of %s failed", link)
		return result, err
	}
	log.Info().Str("op", "http/multi-down").Msgf("Downloaded %s (%d) to %s with slicing mode in %s", link, size, outputPath, result.Elapsed)
	return result, nil
}
