package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"laview-dl/internal/archive"
	"laview-dl/internal/history"
	"laview-dl/internal/isapi"
	"laview-dl/internal/registry"
	"laview-dl/internal/timerange"
)

const stampLayout = "2006-01-02 15:04:05"

type downloadOptions struct {
	channel     int
	out         string
	timeout     time.Duration
	username    string
	password    string
	useUTC      bool
	deviceLocal bool
	resume      bool
	historyPath string
}

func (a *App) newDownloadCmd() *cobra.Command {
	opts := &downloadOptions{}
	cmd := &cobra.Command{
		Use:   "download <device|address> <start> [end]",
		Short: "Download the recorded segments of a camera channel for a time window",
		Long: `Download enumerates the recorded video segments of one camera channel
within a time window and fetches them one by one into the local archive.

The first argument is either a stored device name or a host/IP. Start and end
accept absolute dates ("2024-04-12 00:00:00", "April 12, 2024 8:00 AM") and
relative expressions ("yesterday", "2 days ago", "last week 6:00 AM"). An
omitted end means now.`,
		Example: `  laview-dl download 10.145.17.202 "2024-04-15 00:30:00" "2024-04-15 10:59:59"
  laview-dl download office-nvr yesterday
  laview-dl download office-nvr "2 days ago" now --channel 2 --resume`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDownload(cmd.Context(), args, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.channel, "channel", "c", 0, "camera channel (default: profile value or 1)")
	flags.StringVarP(&opts.out, "out", "o", "", "archive root directory (default: ./video)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default: profile value or 10s)")
	flags.StringVarP(&opts.username, "username", "u", "", "device username (overrides profile and environment)")
	flags.StringVarP(&opts.password, "password", "p", "", "device password (overrides profile and environment)")
	flags.BoolVar(&opts.useUTC, "utc", false, "interpret start/end as UTC instead of host local time")
	flags.BoolVar(&opts.deviceLocal, "device-local", false, "interpret start/end in the device's configured timezone")
	flags.BoolVar(&opts.resume, "resume", false, "skip segments recorded as downloaded in the history ledger")
	flags.StringVar(&opts.historyPath, "history", "", "history ledger path (default: <config-dir>/history.db)")
	cmd.MarkFlagsMutuallyExclusive("utc", "device-local")

	return cmd
}

func (a *App) runDownload(ctx context.Context, args []string, opts *downloadOptions) error {
	dev, err := a.resolveTarget(args[0])
	if err != nil {
		return err
	}

	channel := opts.channel
	if channel <= 0 {
		channel = dev.Channel
	}
	if channel <= 0 {
		channel = 1
	}

	creds := isapi.Credentials{Username: opts.username, Password: opts.password}
	if creds.Username == "" {
		creds.Username = dev.Username
	}
	if creds.Username == "" {
		creds.Username = a.settings.Username
	}
	if creds.Password == "" {
		creds.Password = dev.Password
	}
	if creds.Password == "" {
		creds.Password = a.settings.Password
	}

	timeout := opts.timeout
	if timeout <= 0 && dev.TimeoutSeconds > 0 {
		timeout = dev.Timeout()
	}
	if timeout <= 0 {
		timeout = a.settings.Timeout
	}

	endText := ""
	if len(args) == 3 {
		endText = args[2]
	}
	loc := time.Local
	if opts.useUTC {
		loc = time.UTC
	}

	// Malformed expressions are rejected before touching the network. The
	// device-local mode is the one exception: the window can only be
	// interpreted once the device's timezone is known.
	var window timerange.Range
	if !opts.deviceLocal {
		window, err = timerange.Resolve(args[1], endText, time.Now(), loc)
		if err != nil {
			return err
		}
	}

	client := isapi.New(dev.Address, creds, isapi.Options{
		Timeout:  timeout,
		PageSize: a.settings.PageSize,
		PageCap:  a.settings.PageCap,
		Logger:   a.log,
	})
	if err := client.Negotiate(ctx); err != nil {
		return err
	}
	a.log.Info("connected", "device", dev.Address, "auth", client.Auth())

	if opts.deviceLocal {
		offset, err := client.TimeOffset(ctx)
		if err != nil {
			return err
		}
		loc = time.FixedZone("device", int(offset/time.Second))
		a.log.Debug("using device timezone", "offset", offset)
		window, err = timerange.Resolve(args[1], endText, time.Now(), loc)
		if err != nil {
			return err
		}
	}
	a.log.Info("searching recordings", "device", dev.Address, "channel", channel, "window", window.String())

	tracks, err := client.SearchRecordings(ctx, channel, window.Start, window.End)
	if errors.Is(err, isapi.ErrTruncated) {
		a.log.Warn("device kept reporting more results; continuing with partial list",
			"tracks", len(tracks), "err", err)
	} else if err != nil {
		return err
	}
	if len(tracks) == 0 {
		fmt.Fprintln(a.out, "no recordings found in range")
		return nil
	}
	fmt.Fprintf(a.out, "found %d segments\n", len(tracks))

	outRoot := opts.out
	if outRoot == "" {
		outRoot = a.settings.OutputDir
	}
	dir, err := archive.EnsureDir(outRoot, dev.Address, channel)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openHistory(opts)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	summary := a.fetchAll(ctx, client, store, tracks, dev.Address, channel, dir, loc, opts.resume)
	return a.report(summary, len(tracks))
}

// resolveTarget maps a stored profile name to its device, or treats the
// argument as a bare host/IP when no profile matches.
func (a *App) resolveTarget(target string) (registry.Device, error) {
	reg, err := a.openRegistry()
	if err != nil {
		return registry.Device{}, err
	}
	dev, err := reg.Get(target)
	if errors.Is(err, registry.ErrNotFound) {
		return registry.Device{Address: target}, nil
	}
	if err != nil {
		return registry.Device{}, err
	}
	a.log.Debug("using device profile", "name", target, "address", dev.Address)
	return dev, nil
}

func (a *App) openHistory(opts *downloadOptions) (*history.Store, func(), error) {
	if !opts.resume && opts.historyPath == "" {
		return nil, nil, nil
	}
	path := opts.historyPath
	if path == "" {
		dir := a.configDir
		if dir == "" {
			var err error
			dir, err = registry.DefaultDir()
			if err != nil {
				return nil, nil, err
			}
		}
		path = filepath.Join(dir, "history.db")
	}
	db, err := history.OpenDB(path)
	if err != nil {
		return nil, nil, err
	}
	store, err := history.NewStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}

type runSummary struct {
	succeeded int
	failed    int
	skipped   int
	failures  []segmentFailure
}

type segmentFailure struct {
	track isapi.Track
	err   error
}

// fetchAll downloads every track sequentially. A failed segment is recorded
// and the loop moves on; only the caller decides whether that fails the run.
func (a *App) fetchAll(ctx context.Context, client *isapi.Client, store *history.Store,
	tracks []isapi.Track, address string, channel int, dir string, loc *time.Location, resume bool) runSummary {

	var s runSummary
	for _, track := range tracks {
		stamp := track.Start.In(loc).Format(stampLayout)

		if resume && store != nil {
			done, err := store.Downloaded(address, channel, track.Start)
			if err != nil {
				a.log.Warn("history lookup failed", "err", err)
			} else if done {
				s.skipped++
				fmt.Fprintf(a.out, "skip    %s (already downloaded)\n", stamp)
				continue
			}
		}

		path, size, err := client.DownloadTrack(ctx, track, dir, loc)
		if err != nil {
			s.failed++
			s.failures = append(s.failures, segmentFailure{track: track, err: err})
			fmt.Fprintf(a.out, "failed  %s: %v\n", stamp, err)
			a.recordHistory(store, track, address, channel, "", history.OutcomeFailed, err)
			continue
		}
		s.succeeded++
		fmt.Fprintf(a.out, "ok      %s (%s)\n", filepath.Base(path), humanize.Bytes(uint64(size)))
		a.recordHistory(store, track, address, channel, path, history.OutcomeOK, nil)
	}
	return s
}

func (a *App) recordHistory(store *history.Store, track isapi.Track, address string, channel int,
	path, outcome string, cause error) {

	if store == nil {
		return
	}
	entry := history.Entry{
		Device:      address,
		Channel:     channel,
		Start:       track.Start,
		End:         track.End,
		PlaybackURI: track.PlaybackURI,
		LocalPath:   path,
		Outcome:     outcome,
	}
	if cause != nil {
		entry.Reason = cause.Error()
	}
	if err := store.Record(entry); err != nil {
		a.log.Warn("could not record history entry", "err", err)
	}
}

func (a *App) report(s runSummary, requested int) error {
	fmt.Fprintf(a.out, "\n%d requested, %d succeeded, %d failed", requested, s.succeeded, s.failed)
	if s.skipped > 0 {
		fmt.Fprintf(a.out, ", %d skipped", s.skipped)
	}
	fmt.Fprintln(a.out)

	if s.failed == 0 {
		return nil
	}
	for _, f := range s.failures {
		fmt.Fprintf(a.out, "  failed %s: %v\n", f.track.Start.Format(stampLayout), f.err)
	}
	return fmt.Errorf("%d of %d segments failed", s.failed, requested)
}
