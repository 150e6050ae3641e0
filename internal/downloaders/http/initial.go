// Package rangehttp downloads a single HTTP resource into a local file,
// either as one stream or as concurrent byte-range chunks written in place.
package rangehttp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rangedl/internal/config"
	"github.com/tanq16/rangedl/internal/controller"
	"github.com/tanq16/rangedl/internal/utils"
)

const mib = 1024 * 1024

type Mode int

const (
	ModeSingle Mode = iota
	ModeSliced
)

func (m Mode) String() string {
	if m == ModeSliced {
		return "slicing"
	}
	return "single"
}

// Result describes a finished (or failed) download. Elapsed covers only the
// transfer phase; Size is 0 when the server did not report one.
type Result struct {
	Elapsed time.Duration
	Size    int64
	Mode    Mode
}

type RemoteInfo struct {
	Size     int64
	FileName string
}

type Downloader struct {
	cfg    config.Config
	client *utils.RangeClient
}

// New validates cfg and keeps a private copy of it.
func New(cfg config.Config) (*Downloader, error) {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client := utils.NewRangeClient(utils.HTTPClientConfig{
		Timeout:        cfg.Timeout,
		KATimeout:      cfg.KATimeout,
		ProxyURL:       cfg.ProxyURL,
		UserAgent:      cfg.UserAgent,
		Headers:        cfg.Headers,
		HighThreadMode: cfg.CoroutineLimit > 5,
	})
	return &Downloader{cfg: cfg, client: client}, nil
}

func (d *Downloader) Config() config.Config {
	return d.cfg.Clone()
}

// ChooseMode picks single-stream mode for unknown sizes and for sizes at or
// below thresholdMiB.
func ChooseMode(size, thresholdMiB int64) Mode {
	if size <= 0 || size <= thresholdMiB*mib {
		return ModeSingle
	}
	return ModeSliced
}

// Probe sends a HEAD request. A missing or unusable Content-Length, or a
// non-success status, yields Size 0 rather than an error.
func (d *Downloader) Probe(ctx context.Context, link string) (RemoteInfo, error) {
	resp, err := d.client.Head(ctx, link)
	if err != nil {
		return RemoteInfo{}, fmt.Errorf("error checking URL: %w", err)
	}
	resp.Body.Close()
	info := RemoteInfo{FileName: utils.FileNameFromResponse(link, resp.Header.Get("Content-Disposition"))}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Str("op", "http/initial").Msgf("HEAD %s returned %d, treating size as unknown", link, resp.StatusCode)
		return info, nil
	}
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		size, err := strconv.ParseInt(contentLength, 10, 64)
		if err == nil && size > 0 {
			info.Size = size
		}
	}
	return info, nil
}

// Download fetches link into outputPath. ctrl may be nil.
func (d *Downloader) Download(ctx context.Context, link, outputPath string, ctrl *controller.Controller) (Result, error) {
	info, err := d.Probe(ctx, link)
	if err != nil {
		return Result{}, err
	}
	return d.Transfer(ctx, link, outputPath, info.Size, ctrl)
}

// Transfer is Download for a size already obtained from Probe. size 0 means
// unknown.
func (d *Downloader) Transfer(ctx context.Context, link, outputPath string, size int64, ctrl *controller.Controller) (Result, error) {
	if ChooseMode(size, d.cfg.SliceThreshold) == ModeSingle {
		return d.downloadSingle(ctx, link, outputPath, size, ctrl)
	}
	return d.downloadSliced(ctx, link, outputPath, size, ctrl)
}

func (d *Downloader) newTransfer(link, outputPath string, rng Range, whole bool, expected int64, ctrl *controller.Controller) *chunkTransfer {
	return &chunkTransfer{
		client:     d.client,
		url:        link,
		outputPath: outputPath,
		rng:        rng,
		whole:      whole,
		expected:   expected,
		ctrl:       ctrl,
		retries:    d.cfg.RetryTimes,
		backoff:    d.cfg.RetryBackoff,
		unitSize:   d.cfg.ChunkSize,
		verify:     d.cfg.VerifyRanges,
	}
}

// preallocate creates or truncates outputPath to exactly size bytes.
func preallocate(outputPath string, size int64) error {
	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrOutputFile, err)
		}
	}
	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputFile, err)
	}
	defer outFile.Close()
	if err := outFile.Truncate(size); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputFile, err)
	}
	return nil
}
