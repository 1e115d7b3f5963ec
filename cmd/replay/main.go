// Command replay runs a recorded detection stream (one JSON object per line,
// {"frame":N,"detections":[...]}) through a fresh tracker and classifier and
// prints every emitted event as a JSON line.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"cctvmonitor/internal/config"
	"cctvmonitor/internal/dto"
	"cctvmonitor/internal/logger"
	"cctvmonitor/internal/service/behavior"
	"cctvmonitor/internal/service/tracking"

	"github.com/goccy/go-json"
)

const maxLineSize = 4 << 20

func main() {
	input := flag.String("input", "-", "Detection stream (JSON lines), - for stdin")
	verbose := flag.Bool("v", false, "Log rejected detections")
	flag.Parse()

	in := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("Failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	cfg := config.Load()
	if err := cfg.Tuning.Validate(); err != nil {
		log.Fatalf("Invalid tuning: %v", err)
	}

	replayLog := logger.NewDiscard()
	if *verbose {
		replayLog = logger.NewStderr(false)
	}

	summary, err := replay(in, os.Stdout, cfg.Tuning, replayLog)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	fmt.Fprintf(os.Stderr, "✅ %d frames, %d active tracks at end, %d events\n", summary.Frames, summary.Tracks, summary.Events)
}

type summary struct {
	Frames int
	Tracks int
	Events int
}

// replay feeds each line to the tracker and classifier. Frame numbers must
// increase; a line with a frame number of 0 is numbered after its predecessor.
func replay(r io.Reader, w io.Writer, tuning config.Tuning, log *logger.Logger) (summary, error) {
	tracker := tracking.NewTracker(tuning)
	classifier := behavior.NewClassifier(tuning)
	enc := json.NewEncoder(w)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var sum summary
	last := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var fd dto.FrameDetections
		if err := json.Unmarshal(raw, &fd); err != nil {
			return sum, fmt.Errorf("line %d: %w", line, err)
		}
		if fd.Frame == 0 {
			fd.Frame = last + 1
		}
		if fd.Frame <= last {
			return sum, fmt.Errorf("line %d: frame %d does not follow frame %d", line, fd.Frame, last)
		}
		last = fd.Frame

		if err := tracker.Update(fd.Detections, fd.Frame); err != nil {
			log.Warning("Frame %d: %v", fd.Frame, err)
		}

		tracks := tracker.Tracks()
		for _, event := range classifier.Classify(tracks, fd.Frame) {
			if err := enc.Encode(event); err != nil {
				return sum, fmt.Errorf("failed to write event: %w", err)
			}
			sum.Events++
		}
		sum.Frames++
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("failed to read input: %w", err)
	}

	sum.Tracks = tracker.Stats().TotalTracked
	return sum, nil
}
