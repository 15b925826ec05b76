package detection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/teslashibe/go-spotter/internal/httpc"
)

// Pull downloads model weights from url into dst, showing progress on stderr.
// The file is written to a temporary name first so a failed download never
// leaves a truncated model behind.
func Pull(ctx context.Context, url, dst string) error {
	return pull(ctx, httpc.NewResty(0), url, dst, os.Stderr)
}

func pull(ctx context.Context, client *resty.Client, url, dst string, progress io.Writer) (err error) {
	if url == "" {
		return errors.New("pull: url is required")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	resp, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("pull %s: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return fmt.Errorf("pull %s: %s", url, resp.Status())
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	size := int64(-1)
	if resp.RawResponse != nil && resp.RawResponse.ContentLength > 0 {
		size = resp.RawResponse.ContentLength
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetDescription("Downloading "+filepath.Base(dst)),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
	)

	if _, err = io.Copy(io.MultiWriter(tmp, bar), body); err != nil {
		return fmt.Errorf("pull %s: %w", url, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	bar.Finish()
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}
