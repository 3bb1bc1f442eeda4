package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/dmitrijs2005/captainslog/internal/models"
)

// ReaderSource reads an existing recording, e.g. a file or stdin. The
// stream ends at EOF; Stop does not cut it short.
type ReaderSource struct {
	R io.Reader
}

func (s ReaderSource) Open(context.Context) (Stream, error) {
	return readerStream{r: s.R}, nil
}

type readerStream struct {
	r io.Reader
}

func (s readerStream) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s readerStream) Stop() error                { return nil }

func (s readerStream) Close() error {
	if c, ok := s.r.(io.Closer); ok && s.r != os.Stdin {
		return c.Close()
	}
	return nil
}

// FileSource opens the file at Path.
type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context) (Stream, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	return ReaderSource{R: f}.Open(ctx)
}

// FFmpegSource records from a microphone by running ffmpeg and reading
// WebM/Opus from its stdout.
type FFmpegSource struct {
	Binary  string
	Format  string
	Device  string
	Quality models.AudioQuality
	Stderr  io.Writer
}

// DefaultInput returns the ffmpeg input format and device for this OS.
func DefaultInput() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

func (s FFmpegSource) args() []string {
	format, device := s.Format, s.Device
	if format == "" || device == "" {
		df, dd := DefaultInput()
		if format == "" {
			format = df
		}
		if device == "" {
			device = dd
		}
	}
	q := s.Quality
	if !q.Valid() {
		q = models.DefaultSettings().AudioQuality
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format, "-i", device,
		"-ac", "1",
		"-c:a", "libopus", "-b:a", q.Bitrate(),
		"-f", "webm", "pipe:1",
	}
}

func (s FFmpegSource) Open(ctx context.Context) (Stream, error) {
	bin := s.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, s.args()...)
	cmd.Stderr = s.Stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	return &ffmpegStream{cmd: cmd, out: out}, nil
}

type ffmpegStream struct {
	cmd  *exec.Cmd
	out  io.ReadCloser
	once sync.Once
}

func (s *ffmpegStream) Read(p []byte) (int, error) { return s.out.Read(p) }

// Stop interrupts ffmpeg so it finalizes the container before exiting.
func (s *ffmpegStream) Stop() error {
	if runtime.GOOS == "windows" {
		return s.cmd.Process.Kill()
	}
	return s.cmd.Process.Signal(os.Interrupt)
}

// Close reaps the process. ffmpeg exits non-zero after an interrupt, so
// the exit status is not reported.
func (s *ffmpegStream) Close() error {
	s.once.Do(func() { _ = s.cmd.Wait() })
	return nil
}
