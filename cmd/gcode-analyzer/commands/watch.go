/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: watch.go
Description: Watch command. Monitors directories with fsnotify and analyzes G-code files
once they stop changing, so slicer exports are reported as soon as they land.
*/

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kleascm/gcode-analyzer/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunWatch analyzes G-code files written into the watched directories until interrupted
func RunWatch(cmd *cobra.Command, args []string) error {
	format, err := reportFormat()
	if err != nil {
		return err
	}
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	settle := viper.GetDuration("watch.settle")

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		s.logger.Info("Watching directory", map[string]interface{}{"dir": dir, "settle": settle})
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	return watchLoop(ctx, watcher, settle, func(path string) {
		result, err := s.engine.AnalyzeFile(ctx, path)
		if result == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", badStyle.Render("✗"), path, err)
			return
		}
		warnPartial(cmd, core.BatchResult{Source: path, Result: result, Err: err})
		if err := s.emit(ctx, out, result, format); err != nil {
			s.logger.Error("Report failed", map[string]interface{}{"source": path, "error": err.Error()})
		}
		if err := s.logger.Rotate(); err != nil {
			s.logger.Warning("Log rotation failed", map[string]interface{}{"error": err.Error()})
		}
	})
}

// watchLoop debounces create and write events per file and calls analyze once a
// G-code file has been quiet for settle. It returns when ctx is done or the
// watcher closes.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, settle time.Duration, analyze func(path string)) error {
	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsGCode(event.Name) || !event.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			if t, ok := pending[event.Name]; ok {
				t.Stop()
			}
			name := event.Name
			pending[name] = time.AfterFunc(settle, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case name := <-ready:
			delete(pending, name)
			analyze(name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				return fmt.Errorf("watcher failed: %w", err)
			}
		}
	}
}
