package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

type translateFlags struct {
	from          string
	to            string
	batchSize     int
	maxChars      int
	contextBefore int
	contextAfter  int
	threads       int
	retries       int
	minDelayMS    int
	suffix        string
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var flags translateFlags

	cmd := &cobra.Command{
		Use:   "translate <file.srt>...",
		Short: "Translate subtitle files and write them next to the originals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			closeLog, err := setupLogging(cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()

			overrides := flags.overrides(cmd.Flags())
			return runTranslate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), *cfg, ctx.newClient, overrides, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.from, "from", "f", "", `Source language tag or "auto"`)
	f.StringVarP(&flags.to, "to", "t", "", "Target language tag")
	f.IntVar(&flags.batchSize, "batch-size", 0, "Cues per request")
	f.IntVar(&flags.maxChars, "max-chars", 0, "Character budget per request")
	f.IntVar(&flags.contextBefore, "context-before", 0, "Read-only cues before each batch")
	f.IntVar(&flags.contextAfter, "context-after", 0, "Read-only cues after each batch")
	f.IntVarP(&flags.threads, "threads", "j", 0, "Concurrent requests per file")
	f.IntVar(&flags.retries, "retries", 0, "Retries per batch after the first attempt")
	f.IntVar(&flags.minDelayMS, "min-delay", 0, "Delay in milliseconds before every request")
	f.StringVar(&flags.suffix, "out-suffix", "", "Suffix inserted before the output extension")
	return cmd
}

// overrides returns a function applying the flags the user set.
func (f translateFlags) overrides(set *pflag.FlagSet) func(*jobs.Options) {
	return func(o *jobs.Options) {
		if set.Changed("from") {
			o.SourceLang = f.from
		}
		if set.Changed("to") {
			o.TargetLang = f.to
		}
		if set.Changed("batch-size") {
			o.BatchSize = f.batchSize
		}
		if set.Changed("max-chars") {
			o.MaxCharsPerRequest = f.maxChars
		}
		if set.Changed("context-before") {
			o.ContextBefore = f.contextBefore
		}
		if set.Changed("context-after") {
			o.ContextAfter = f.contextAfter
		}
		if set.Changed("threads") {
			o.Threads = f.threads
		}
		if set.Changed("retries") {
			o.MaxRetries = f.retries
		}
		if set.Changed("min-delay") {
			o.MinDelayMS = f.minDelayMS
		}
		if set.Changed("out-suffix") {
			o.OutputSuffix = f.suffix
		}
	}
}

// runTranslate translates every path with an in-memory service and prints
// a summary table. It fails if any file could not be translated.
func runTranslate(
	ctx context.Context,
	stdout, stderr io.Writer,
	cfg config.Config,
	newClient service.ClientFactory,
	overrides func(*jobs.Options),
	paths []string,
) error {
	progress := newProgressPrinter(stderr)
	svc := service.New(cfg,
		service.WithClientFactory(newClient),
		service.WithEventSink(progress),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	opts := svc.DefaultOptions()
	if overrides != nil {
		overrides(&opts)
	}

	items, importErr := svc.ImportFiles(paths)
	if importErr != nil {
		for _, msg := range splitErrors(importErr) {
			fmt.Fprintln(stderr, "error:", msg)
		}
	}

	var started []*jobs.TranslationJob
	for _, item := range items {
		job, err := svc.CreateJob(item.ID, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", item.Name, err)
		}
		if job, err = svc.StartJob(ctx, job.ID); err != nil {
			return fmt.Errorf("%s: %w", item.Name, err)
		}
		started = append(started, job)
	}

	var finished []*jobs.TranslationJob
	for _, job := range started {
		done, err := svc.Wait(ctx, job.ID)
		if err != nil {
			progress.finish()
			return err
		}
		finished = append(finished, done)
	}
	progress.finish()

	if len(finished) > 0 {
		fmt.Fprintln(stdout, renderSummary(finished))
	}

	failed := len(paths) - len(items)
	for _, job := range finished {
		if job.Status != jobs.StatusDone {
			failed++
			log.Debug("Job %s failed: %s", job.ID, job.Error)
			if job.Advice != "" {
				fmt.Fprintf(stderr, "%s: %s\n", job.FileName, job.Advice)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func renderSummary(finished []*jobs.TranslationJob) string {
	rows := make([][]string, 0, len(finished))
	for _, job := range finished {
		result := job.OutputPath
		if job.Status != jobs.StatusDone {
			result = job.Error
		}
		rows = append(rows, []string{
			job.FileName,
			string(job.Status),
			strconv.Itoa(job.DoneCues) + "/" + strconv.Itoa(job.TotalCues),
			job.UpdatedAt.Sub(job.CreatedAt).Round(time.Millisecond).String(),
			result,
		})
	}
	return renderTable(
		[]string{"File", "Status", "Cues", "Time", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

// splitErrors lists the messages of an errors.Join result.
func splitErrors(err error) []string {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []string{err.Error()}
	}
	ret := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		ret = append(ret, e.Error())
	}
	return ret
}
