package isapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"laview-dl/internal/archive"
)

const copyBufferSize = 1 << 20

// DownloadTrack streams one track's media into destDir, naming the file from
// the track's start time rendered in nameIn. It returns the final path and
// the byte count. A partially written file is removed on failure. The file's
// modification time is set to the segment start where the filesystem allows.
//
// The request deadline only covers connection setup and response headers;
// the body stream itself is bounded by ctx.
func (c *Client) DownloadTrack(ctx context.Context, track Track, destDir string, nameIn *time.Location) (string, int64, error) {
	body, err := xml.Marshal(downloadRequest{PlaybackURI: track.PlaybackURI})
	if err != nil {
		return "", 0, fmt.Errorf("encoding download request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodGet, downloadPath, body)
	if err != nil {
		return "", 0, fmt.Errorf("downloading from %s: %w", c.address, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, c.deviceError(resp)
	}

	path := archive.UniquePath(archive.SegmentPath(destDir, track.Start.In(nameIn)))
	size, err := writeStream(resp.Body, path)
	if err != nil {
		return "", 0, err
	}

	if err := os.Chtimes(path, track.Start, track.Start); err != nil {
		c.log.Debug("could not stamp file time", "path", path, "err", err)
	}
	return path, size, nil
}

// writeStream copies the payload into path via a temporary file so an
// interrupted transfer never leaves a half-written segment behind.
func writeStream(r io.Reader, path string) (int64, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", tmp, err)
	}

	buf := make([]byte, copyBufferSize)
	n, err := io.CopyBuffer(f, r, buf)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("finalizing %s: %w", path, err)
	}
	return n, nil
}
