package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"streamq/internal/playback"
	"streamq/internal/session"
)

// newRunCommand starts a headless session: the queue mirror reconciles in
// the background and finished downloads are retrieved into the download
// folder, until interrupted.
func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a headless session that retrieves finished downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			sess, err := session.New(cfg, session.Options{
				Media:   nullMedia{},
				Fetcher: fileFetcher(cfg.StateDir, cmd.OutOrStdout()),
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := sess.Start(runCtx); err != nil {
				_ = sess.Shutdown(context.Background())
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session running against %s; interrupt to stop\n", cfg.Server.BaseURL)

			// Resume tracking any job the server still knows about.
			statuses, err := sess.API.AllDownloadStatus(runCtx)
			if err == nil {
				for id, status := range statuses {
					if status.Status.Active() {
						sess.Downloads.Track(id)
					}
				}
			}

			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
			defer cancel()
			return sess.Shutdown(shutdownCtx)
		},
	}
}

// fileFetcher saves completed downloads under dir. Fetch failures only log;
// the retrieval marker is written by the session after a successful call.
func fileFetcher(dir string, out io.Writer) session.FileFetcher {
	return func(jobID, fileURL string) error {
		resp, err := http.Get(fileURL)
		if err != nil {
			fmt.Fprintf(out, "fetch %s: %v\n", jobID, err)
			return err
		}
		defer resp.Body.Close()
		target := filepath.Join(dir, jobID+".mp4")
		file, err := os.Create(target)
		if err != nil {
			fmt.Fprintf(out, "fetch %s: %v\n", jobID, err)
			return err
		}
		defer file.Close()
		if _, err := io.Copy(file, resp.Body); err != nil {
			fmt.Fprintf(out, "fetch %s: %v\n", jobID, err)
			return err
		}
		fmt.Fprintf(out, "saved %s\n", target)
		return nil
	}
}

// nullMedia satisfies the playback backend for sessions with no player
// attached.
type nullMedia struct{}

func (nullMedia) Load(string) error { return nil }
func (nullMedia) Play()             {}
func (nullMedia) Pause()            {}
func (nullMedia) Stop()             {}
func (nullMedia) Seek(float64)      {}
func (nullMedia) Position() float64 { return 0 }
func (nullMedia) Duration() float64 { return 0 }
func (nullMedia) Playing() bool     { return false }

var _ playback.Media = nullMedia{}
