package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"jellycast.app/jellycast/internal/jellyfin"
	"jellycast.app/jellycast/internal/playback"
	"jellycast.app/jellycast/internal/toast"
)

const interUsage = `Available commands:
  p            pause
  r            resume
  f            seek forward 30s
  b            seek backward 10s
  s <seconds>  seek to an absolute position
  t            list subtitle tracks
  t <number>   enable a subtitle track
  t off        disable subtitles
  i            show playback status
  m            toggle the watched flag
  q            stop and quit`

// interInit runs the interactive command loop until the user quits or
// the context is canceled.
func interInit(ctx context.Context, coord *playback.Coordinator, server *jellyfin.Client, toaster *toast.Toaster, item playback.MediaItem) {
	toasts, cancelToasts := toaster.Subscribe()
	defer cancelToasts()
	go func() {
		for msg := range toastLoop(ctx, toasts) {
			fmt.Println(msg)
		}
	}()

	fmt.Println(interUsage)

	watched := false
	var tracks []playback.SubtitleTrack

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "p":
			coord.Pause(ctx)
		case "r":
			coord.Resume(ctx)
		case "f":
			coord.SeekForward(ctx)
		case "b":
			coord.SeekBackward(ctx)
		case "s":
			if len(fields) < 2 {
				fmt.Println("usage: s <seconds>")
				continue
			}
			seconds, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				fmt.Println("usage: s <seconds>")
				continue
			}
			coord.SeekToPosition(ctx, seconds)
		case "t":
			if len(fields) < 2 {
				tracks = coord.SubtitleTracks(ctx)
				printTracks(tracks)
				continue
			}
			if fields[1] == "off" {
				coord.SetSubtitleTrack(ctx, nil)
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > len(tracks) {
				fmt.Println("usage: t [number|off] (run t first to list tracks)")
				continue
			}
			track := tracks[n-1]
			coord.SetSubtitleTrack(ctx, &track)
		case "i":
			printStatus(coord.Snapshot())
		case "m":
			var err error
			if watched {
				err = server.MarkUnplayed(ctx, item.ID)
			} else {
				err = server.MarkPlayed(ctx, item.ID)
			}
			if err != nil {
				fmt.Println("Failed to toggle watched flag.")
				continue
			}
			watched = !watched
			fmt.Printf("Watched: %v\n", watched)
		case "q":
			coord.Stop(ctx)
			return
		default:
			fmt.Println(interUsage)
		}
	}
}

// toastLoop adapts the toast channel into one that closes with the
// context, so the printer goroutine does not leak.
func toastLoop(ctx context.Context, toasts <-chan toast.Toast) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-toasts:
				if !ok {
					return
				}
				out <- msg.Message
			}
		}
	}()
	return out
}

func printTracks(tracks []playback.SubtitleTrack) {
	if len(tracks) == 0 {
		fmt.Println("No subtitle tracks available.")
		return
	}
	for q, track := range tracks {
		flags := ""
		if track.IsForced {
			flags += " forced"
		}
		if track.IsDefault {
			flags += " default"
		}
		fmt.Printf("%d: %s [%s]%s\n", q+1, track.Name, track.Language, flags)
	}
}

func printStatus(st playback.Status) {
	state := "stopped"
	switch {
	case st.IsBusy:
		state = "busy"
	case st.IsPlaying:
		state = "playing"
	case !st.IsStopped:
		state = "paused"
	}
	fmt.Printf("%s  %.0fs / %.0fs\n", state, st.StreamPosition, st.MaxPosition)
}
