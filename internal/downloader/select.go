package downloader

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tgvidbot/internal/util/media"
)

// ErrNoOutput is returned when yt-dlp exited cleanly but left no usable file.
var ErrNoOutput = errors.New("no output file found")

// SelectDownloadedFile picks the delivered file in workdir: files named
// base.* first, then any file, ranked by extension. Partial downloads,
// thumbnails and empty files are never chosen.
func SelectDownloadedFile(workdir, base string) (string, error) {
	entries, err := os.ReadDir(workdir)
	if err != nil {
		return "", err
	}

	type candidate struct {
		path    string
		rank    int
		matches bool
	}
	var cands []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		rank, ok := media.Rank(e.Name())
		if !ok {
			continue
		}
		if info, err := e.Info(); err != nil || info.Size() == 0 {
			continue
		}
		cands = append(cands, candidate{
			path:    filepath.Join(workdir, e.Name()),
			rank:    rank,
			matches: strings.HasPrefix(e.Name(), base+"."),
		})
	}
	if len(cands) == 0 {
		return "", ErrNoOutput
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].matches != cands[j].matches {
			return cands[i].matches
		}
		if cands[i].rank != cands[j].rank {
			return cands[i].rank < cands[j].rank
		}
		return cands[i].path < cands[j].path
	})
	return cands[0].path, nil
}
