package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner animates a status line on stderr while a request runs
type Spinner struct {
	writer  io.Writer
	message string
	style   spinner.Spinner
	stop    chan struct{}
	done    sync.WaitGroup
}

// NewSpinner creates a new spinner with a message
func NewSpinner(message string) *Spinner {
	return &Spinner{
		writer:  os.Stderr,
		message: message,
		style:   spinner.Dot,
		stop:    make(chan struct{}),
	}
}

// Start begins the animation in a goroutine
func (s *Spinner) Start() {
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		ticker := time.NewTicker(s.style.FPS)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(s.style.Frames) {
			fmt.Fprintf(s.writer, "\r%s %s", s.style.Frames[i], s.message)
			select {
			case <-s.stop:
				fmt.Fprintf(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop clears the line. It waits for the last frame to be erased.
func (s *Spinner) Stop() {
	close(s.stop)
	s.done.Wait()
}
