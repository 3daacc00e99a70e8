package jobs

import "path/filepath"

// Layout names per-job artifacts under a single output directory. Names are
// keyed by job id, so concurrent jobs never share a path.
type Layout struct {
	Dir string
}

func (l Layout) AudioPath(id string) string {
	return filepath.Join(l.Dir, "audio_"+id+".wav")
}

func (l Layout) VideoPath(id string) string {
	return filepath.Join(l.Dir, "video_"+id+".mp4")
}
