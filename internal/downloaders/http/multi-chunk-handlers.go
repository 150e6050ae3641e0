package rangehttp

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rangedl/internal/controller"
	"github.com/tanq16/rangedl/internal/utils"
)

// chunkTransfer fetches one range (or the whole resource) into its region of
// the output file.
type chunkTransfer struct {
	client     *utils.RangeClient
	url        string
	outputPath string
	rng        Range
	whole      bool
	expected   int64 // bytes the body must deliver, 0 when unknown
	ctrl       *controller.Controller
	retries    int
	backoff    time.Duration
	unitSize   int64
	verify     bool
	reported   int64
}

func (t *chunkTransfer) chunkID() string {
	if t.whole {
		return ""
	}
	return t.rng.ID()
}

func (t *chunkTransfer) describe() string {
	if t.whole {
		return t.url
	}
	return fmt.Sprintf("part %s of %s", t.rng.ID(), t.url)
}

// run makes up to t.retries attempts. Each attempt restarts from the start of
// the range; writes are addressed by absolute offset so overwriting is safe.
func (t *chunkTransfer) run(ctx context.Context) error {
	log.Debug().Str("op", "http/chunk").Msgf("Downloading %s to %s", t.describe(), t.outputPath)
	var lastErr error
	for attempt := 1; attempt <= t.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.backoff):
			}
		}
		err := t.attempt(ctx)
		if err == nil {
			log.Debug().Str("op", "http/chunk").Msgf("Downloaded %s to %s", t.describe(), t.outputPath)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			log.Error().Str("op", "http/chunk").Err(err).Msgf("Download %s failed", t.describe())
			return err
		}
		lastErr = err
		log.Warn().Str("op", "http/chunk").Err(err).Msgf("Download %s to %s failed for %d times, retrying", t.describe(), t.outputPath, attempt)
	}
	return &TimeoutError{
		URL:         t.url,
		Range:       t.rng,
		Whole:       t.whole,
		Destination: t.outputPath,
		Attempts:    t.retries,
		Err:         lastErr,
	}
}

func (t *chunkTransfer) attempt(ctx context.Context) error {
	byteRange := ""
	if !t.whole {
		byteRange = t.rng.Header()
	}
	resp, err := t.client.Get(ctx, t.url, byteRange)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp.StatusCode, !t.whole, t.verify); err != nil {
		return err
	}

	outFile, err := os.OpenFile(t.outputPath, os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputFile, err)
	}
	defer outFile.Close()

	var body io.Reader = resp.Body
	if !t.whole {
		body = io.LimitReader(resp.Body, t.rng.Size())
	} else if t.expected > 0 {
		// one byte past the known size is enough to detect an overrun
		body = io.LimitReader(resp.Body, t.expected+1)
	}
	buffer := make([]byte, t.unitSize)
	var written int64
	for {
		n, readErr := readUnit(body, buffer)
		if t.expected > 0 && written+int64(n) > t.expected {
			return fmt.Errorf("%w: expected %d bytes", ErrLongBody, t.expected)
		}
		if n > 0 {
			if t.ctrl != nil {
				if err := t.ctrl.WaitWhilePaused(ctx); err != nil {
					return err
				}
			}
			if _, err := outFile.WriteAt(buffer[:n], t.rng.Start+written); err != nil {
				return fmt.Errorf("%w: %w", ErrOutputFile, err)
			}
			written += int64(n)
			t.report(written)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("error reading response body: %w", readErr)
		}
	}
	if t.expected > 0 && written != t.expected {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrShortBody, t.expected, written)
	}
	return nil
}

// report forwards the cumulative count, skipping values at or below what an
// earlier attempt already reported.
func (t *chunkTransfer) report(written int64) {
	if t.ctrl == nil || written <= t.reported {
		return
	}
	t.reported = written
	t.ctrl.UpdateProgress(written, t.chunkID())
}

// readUnit fills buf unless the reader ends or fails first.
func readUnit(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
