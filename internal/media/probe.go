package media

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"soapbox/internal/services"
)

// Info describes a probed mp3 file.
type Info struct {
	DurationSeconds int
	Title           string
}

// Probe decodes the mp3 at path frame by frame to measure its duration and
// reads the embedded title tag when one is present.
func Probe(path string) (Info, error) {
	duration, err := probeDuration(path)
	if err != nil {
		return Info{}, services.Wrap(services.ErrTransient, "media", "probe", "measure duration", err)
	}
	info := Info{DurationSeconds: int(duration.Round(time.Second).Seconds())}
	info.Title = probeTitle(path)
	return info, nil
}

func probeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("decode frame: %w", err)
		}
		total += frame.Duration()
	}
	if total == 0 {
		return 0, fmt.Errorf("no audio frames in %s", path)
	}
	return total, nil
}

// probeTitle is best effort; not every episode file carries ID3 tags.
func probeTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	meta, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return meta.Title()
}
