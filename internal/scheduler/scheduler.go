package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rangedl/internal/controller"
	rangehttp "github.com/tanq16/rangedl/internal/downloaders/http"
	"github.com/tanq16/rangedl/internal/history"
	"github.com/tanq16/rangedl/internal/output"
	"github.com/tanq16/rangedl/internal/utils"
)

// Options control a scheduler run. History may be nil.
type Options struct {
	Workers int
	Output  *output.Manager
	Display bool
	History *history.Store
}

// Run downloads jobs with up to opts.Workers jobs in flight. Every failure is
// reported to the output manager and history; the joined failures are
// returned once all jobs have finished.
func Run(ctx context.Context, jobs []utils.Job, opts Options) error {
	workers := max(1, min(opts.Workers, len(jobs)))
	if opts.Display {
		opts.Output.StartDisplay()
	}
	defer opts.Output.StopDisplay()

	pauses := newPauseGroup()
	stopSignals := watchPauseSignal(ctx, pauses.Toggle)
	defer stopSignals()

	jobCh := make(chan utils.Job, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if err := processJob(ctx, job, opts, pauses); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", job.URL, err))
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func processJob(ctx context.Context, job utils.Job, opts Options, pauses *pauseGroup) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	outputID := opts.Output.Register(job.URL)
	opts.Output.SetMessage(outputID, fmt.Sprintf("Checking %s", job.URL))

	record := &history.Record{URL: job.URL, Output: job.OutputPath}
	if id, err := uuid.Parse(job.ID); err == nil {
		record.ID = id
	}
	fail := func(err error) error {
		opts.Output.SetMessage(outputID, fmt.Sprintf("Failed %s", job.URL))
		opts.Output.ReportError(outputID, err)
		record.Status = history.StatusError
		record.Error = err.Error()
		saveRecord(opts.History, record)
		return err
	}

	downloader, err := rangehttp.New(job.Config)
	if err != nil {
		return fail(err)
	}
	info, err := downloader.Probe(ctx, job.URL)
	if err != nil {
		return fail(err)
	}
	if job.OutputPath == "" {
		job.OutputPath = info.FileName
	}
	job.OutputPath = resolveOutputPath(job.OutputPath)
	record.Output = job.OutputPath

	ctrl := controller.New()
	pauses.Add(job.ID, ctrl)
	defer pauses.Remove(job.ID)
	opts.Output.SetMessage(outputID, fmt.Sprintf("Downloading %s", filepath.Base(job.OutputPath)))
	opts.Output.Track(outputID, ctrl)

	result, err := downloader.Transfer(ctx, job.URL, job.OutputPath, info.Size, ctrl)
	record.Size = result.Size
	record.Elapsed = result.Elapsed
	record.Mode = result.Mode.String()
	if err != nil {
		log.Error().Str("op", "scheduler").Err(err).Msgf("Download of %s failed", job.URL)
		return fail(err)
	}
	record.Status = history.StatusSuccess
	if record.Size == 0 {
		record.Size = ctrl.Downloaded()
	}
	opts.Output.Complete(outputID, fmt.Sprintf("Completed %s (%s) in %s", filepath.Base(job.OutputPath), output.FormatBytes(record.Size), result.Elapsed.Round(time.Millisecond)))
	saveRecord(opts.History, record)
	return nil
}

// resolveOutputPath picks a fresh name when outputPath already exists.
func resolveOutputPath(outputPath string) string {
	if _, err := os.Stat(outputPath); err == nil {
		renewed := utils.RenewOutputPath(outputPath)
		log.Debug().Str("op", "scheduler").Msgf("%s exists, writing to %s", outputPath, renewed)
		return renewed
	}
	return outputPath
}

func saveRecord(store *history.Store, record *history.Record) {
	if store == nil {
		return
	}
	if err := store.Put(record); err != nil {
		log.Error().Str("op", "scheduler").Err(err).Msgf("Failed to record %s in history", record.URL)
	}
}

// pauseGroup holds the controllers of active downloads so one signal can
// pause or resume all of them.
type pauseGroup struct {
	mu     sync.Mutex
	paused bool
	ctrls  map[string]*controller.Controller
}

func newPauseGroup() *pauseGroup {
	return &pauseGroup{ctrls: make(map[string]*controller.Controller)}
}

// Add registers ctrl. It starts paused if the group is paused.
func (g *pauseGroup) Add(id string, ctrl *controller.Controller) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		ctrl.Pause()
	}
	g.ctrls[id] = ctrl
}

func (g *pauseGroup) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ctrls, id)
}

// Toggle flips the group state and returns true if it is now paused.
func (g *pauseGroup) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = !g.paused
	for _, ctrl := range g.ctrls {
		if g.paused {
			ctrl.Pause()
		} else {
			ctrl.Unpause()
		}
	}
	log.Info().Str("op", "scheduler").Msgf("Downloads paused: %t", g.paused)
	return g.paused
}
