package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloaderFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cat.png":
			_, _ = w.Write([]byte("meow"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewDownloader(10, zerolog.Nop())
	files := d.Files(context.Background(), []*discordgo.MessageAttachment{
		{Filename: "cat.png", URL: srv.URL + "/cat.png", Size: 4, ContentType: "image/png"},
		{Filename: "huge.bin", URL: srv.URL + "/cat.png", Size: 11},
		{Filename: "gone.png", URL: srv.URL + "/gone.png", Size: 4},
		nil,
	})

	require.Len(t, files, 1)
	assert.Equal(t, "cat.png", files[0].Name)
	assert.Equal(t, "image/png", files[0].ContentType)
	body, err := io.ReadAll(files[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, "meow", string(body))
}

func TestDownloaderNoLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789abcdef"))
	}))
	defer srv.Close()

	d := NewDownloader(0, zerolog.Nop())
	files := d.Files(context.Background(), []*discordgo.MessageAttachment{
		{Filename: "big.txt", URL: srv.URL, Size: 16},
	})
	assert.Len(t, files, 1)
}

func TestDownloaderKeepsOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	d := NewDownloader(0, zerolog.Nop())
	var atts []*discordgo.MessageAttachment
	names := []string{"a", "b", "c", "d", "e", "f"}
	for _, n := range names {
		atts = append(atts, &discordgo.MessageAttachment{Filename: n, URL: srv.URL + "/" + n, Size: 2})
	}

	files := d.Files(context.Background(), atts)
	require.Len(t, files, len(names))
	for i, f := range files {
		assert.Equal(t, names[i], f.Name)
	}
}
