package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/facerhythm/facerhythm/internal/config"
)

var videoExtensions = map[string]bool{
	".avi": true,
	".mp4": true,
	".mov": true,
	".mkv": true,
}

// ScanSessions walks the sessions directory and collects videos for each
// session folder whose name carries the prefix. Videos within a session
// are sorted by name so multi-file recordings keep their order.
func ScanSessions(root, prefix string) ([]config.Session, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read sessions directory %s: %w", root, err)
	}

	var sessions []config.Session
	for _, entry := range entries {
		if !entry.IsDir() || !strings.Contains(entry.Name(), prefix) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		vids, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}

		session := config.Session{Name: entry.Name()}
		for _, v := range vids {
			if v.IsDir() {
				continue
			}
			if videoExtensions[strings.ToLower(filepath.Ext(v.Name()))] {
				session.Videos = append(session.Videos, filepath.Join(dir, v.Name()))
			}
		}
		if len(session.Videos) == 0 {
			slog.Warn("session has no videos, skipping", "dir", dir)
			continue
		}
		sort.Strings(session.Videos)
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name < sessions[j].Name })
	return sessions, nil
}

// ProbeSessions fills in frame counts, fps, and dimensions for every
// session by probing its first video. All videos in a session are assumed
// to share one recording geometry; mismatches are reported as errors.
func ProbeSessions(ctx context.Context, sessions []config.Session) ([]config.Session, error) {
	out := make([]config.Session, len(sessions))
	for i, s := range sessions {
		probed := s
		total := 0
		for j, v := range s.Videos {
			info, err := Probe(ctx, v)
			if err != nil {
				return nil, fmt.Errorf("session %s: %w", s.Name, err)
			}
			if j == 0 {
				probed.Width, probed.Height, probed.FPS = info.Width, info.Height, info.FPS
			} else if info.Width != probed.Width || info.Height != probed.Height {
				return nil, fmt.Errorf("session %s: video %s is %dx%d, expected %dx%d",
					s.Name, v, info.Width, info.Height, probed.Width, probed.Height)
			}
			total += info.Frames
		}
		probed.Frames = total
		out[i] = probed
	}
	return out, nil
}
