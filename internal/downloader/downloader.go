// Package downloader implements the pluggable audio downloader of spec
// §6.2: given a video id, fetch a direct download link from a RapidAPI
// yt-to-mp3 endpoint and save the asset locally. Grounded on
// original_source's managers/youtube/main.py (download_song_via_video_id's
// query-param + header-auth GET, then a second GET against the returned
// link), using jsonparser instead of json.Unmarshal for the response body
// per the teacher's go.mod (buger/jsonparser) having no other home in this
// repo's domain stack.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/buger/jsonparser"

	"soundmark/internal/apperr"
)

// Downloader is the pluggable fetcher the engine depends on.
type Downloader interface {
	// Download fetches the audio for videoID and saves it under dir,
	// returning the local file path and the track title the API reported.
	Download(ctx context.Context, videoID, dir string) (path string, title string, err error)
}

// RapidAPIDownloader calls a yt-to-mp3 RapidAPI endpoint.
type RapidAPIDownloader struct {
	APIURL     string
	QueryParam string
	APIKey     string
	APIHost    string
	Client     *http.Client
}

// NewRapidAPIDownloader builds a downloader from the §6.6 configuration
// surface's YT_TO_MP3_URL/QUERY_PARAM/RAPID_API_KEY/RAPID_API_HOST.
func NewRapidAPIDownloader(apiURL, queryParam, apiKey, apiHost string) *RapidAPIDownloader {
	return &RapidAPIDownloader{
		APIURL:     apiURL,
		QueryParam: queryParam,
		APIKey:     apiKey,
		APIHost:    apiHost,
		Client:     &http.Client{},
	}
}

func (d *RapidAPIDownloader) Download(ctx context.Context, videoID, dir string) (string, string, error) {
	link, title, err := d.resolveLink(ctx, videoID)
	if err != nil {
		return "", "", err
	}

	path, err := d.fetchToFile(ctx, link, title, dir)
	if err != nil {
		return "", "", err
	}
	return path, title, nil
}

func (d *RapidAPIDownloader) resolveLink(ctx context.Context, videoID string) (link, title string, err error) {
	u, err := url.Parse(d.APIURL)
	if err != nil {
		return "", "", apperr.New(apperr.KindDownloaderFailed, "invalid downloader URL", err)
	}
	q := u.Query()
	q.Set(d.QueryParam, videoID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", "", apperr.New(apperr.KindDownloaderFailed, "building downloader request", err)
	}
	req.Header.Set("X-RapidAPI-Key", d.APIKey)
	req.Header.Set("X-RapidAPI-Host", d.APIHost)

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", "", apperr.New(apperr.KindDownloaderFailed, "downloader request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", apperr.New(apperr.KindDownloaderFailed, "reading downloader response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", apperr.New(apperr.KindDownloaderFailed, fmt.Sprintf("downloader returned status %d", resp.StatusCode), nil)
	}

	link, linkErr := jsonparser.GetString(body, "link")
	title, titleErr := jsonparser.GetString(body, "title")
	if linkErr != nil || titleErr != nil || link == "" || title == "" {
		return "", "", apperr.New(apperr.KindDownloaderFailed, "download link or title missing in response", nil)
	}
	return link, title, nil
}

func (d *RapidAPIDownloader) fetchToFile(ctx context.Context, link, title, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", apperr.New(apperr.KindDownloaderFailed, "building asset request", err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", apperr.New(apperr.KindDownloaderFailed, "fetching audio asset", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperr.New(apperr.KindDownloaderFailed, fmt.Sprintf("asset fetch returned status %d", resp.StatusCode), nil)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.New(apperr.KindInternal, "creating download directory", err)
	}
	path := filepath.Join(dir, sanitizeFilename(title)+".mp3")

	f, err := os.Create(path)
	if err != nil {
		return "", apperr.New(apperr.KindInternal, "creating local audio file", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", apperr.New(apperr.KindDownloaderFailed, "writing downloaded audio", err)
	}
	return path, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[/\\:*?"<>|]`)

func sanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// videoIDPattern extracts an 11-character YouTube video id from any of the
// common URL shapes (watch?v=, youtu.be/, /embed/, /shorts/, /v/).
var videoIDPattern = regexp.MustCompile(
	`(?:youtu\.be/|youtube\.com(?:/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?)/|\S*?[?&]v=|shorts/)|youtu\.be/|embed/|v/|m/|watch\?(?:[^=]+=[^&]+&)*?v=))([^"&?/\s]{11})`,
)

// ExtractVideoID pulls a YouTube video id out of url, or returns "" if none
// of the known shapes match. Ported from original_source's YtManager regex
// so AddTrack can accept a full source URL as well as a bare external id.
func ExtractVideoID(rawURL string) string {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}
