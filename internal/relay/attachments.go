package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/keshon/say-relay/pkg/util"
)

const downloadWorkers = 4

// Downloader turns message attachments into uploadable files.
type Downloader struct {
	Client  *http.Client
	MaxSize int64
	Log     zerolog.Logger
}

func NewDownloader(maxSize int64, log zerolog.Logger) *Downloader {
	return &Downloader{
		Client:  &http.Client{Timeout: 60 * time.Second},
		MaxSize: maxSize,
		Log:     log.With().Str("component", "attachments").Logger(),
	}
}

// Files downloads every attachment that fits MaxSize, keeping their order.
// Attachments that are too large or fail to download are skipped and logged.
func (d *Downloader) Files(ctx context.Context, atts []*discordgo.MessageAttachment) []*discordgo.File {
	slots := make([]*discordgo.File, len(atts))
	idx := make([]int, len(atts))
	for i := range atts {
		idx[i] = i
	}

	_ = util.Parallel(ctx, idx, downloadWorkers, func(_ context.Context, i int) error {
		att := atts[i]
		if att == nil {
			return nil
		}
		if d.MaxSize > 0 && int64(att.Size) > d.MaxSize {
			d.Log.Warn().
				Str("file", att.Filename).
				Str("size", humanize.Bytes(uint64(att.Size))).
				Str("limit", humanize.Bytes(uint64(d.MaxSize))).
				Msg("attachment too large, skipping")
			return nil
		}
		data, err := d.fetch(ctx, att.URL)
		if err != nil {
			d.Log.Warn().Err(err).Str("file", att.Filename).Msg("failed to download attachment")
			return nil
		}
		slots[i] = &discordgo.File{
			Name:        att.Filename,
			ContentType: att.ContentType,
			Reader:      bytes.NewReader(data),
		}
		return nil
	})

	var files []*discordgo.File
	for _, f := range slots {
		if f != nil {
			files = append(files, f)
		}
	}
	return files
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if d.MaxSize > 0 {
		body = io.LimitReader(resp.Body, d.MaxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if d.MaxSize > 0 && int64(len(data)) > d.MaxSize {
		return nil, fmt.Errorf("attachment exceeds %s", humanize.Bytes(uint64(d.MaxSize)))
	}
	return data, nil
}
