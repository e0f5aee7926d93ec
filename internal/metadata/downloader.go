package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-version"
	"github.com/tidwall/gjson"

	"godotdts/internal/errors"
	"godotdts/internal/logger"
)

const (
	DefaultRepository = "godotengine/godot-cpp"
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultRawBaseURL = "https://raw.githubusercontent.com"

	apiFilePath = "gdextension/extension_api.json"
	maxTagPages = 10
)

var stableTag = regexp.MustCompile(`^godot-(\d+\.\d+(?:\.\d+)?)-stable$`)

type FetchOptions struct {
	// Repository is the GitHub owner/name that publishes extension_api.json.
	Repository string
	// Ref is the tag to download. Empty selects the newest stable tag.
	Ref     string
	Timeout time.Duration

	APIBaseURL string
	RawBaseURL string
}

// FetchResult describes a downloaded API dump.
type FetchResult struct {
	Ref     string
	Version string
	Path    string
	Bytes   int
}

type Downloader struct {
	client *resty.Client
	opts   FetchOptions
}

func NewDownloader(opts FetchOptions) *Downloader {
	if opts.Repository == "" {
		opts.Repository = DefaultRepository
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = DefaultAPIBaseURL
	}
	if opts.RawBaseURL == "" {
		opts.RawBaseURL = DefaultRawBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "godotdts").
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && r.StatusCode() >= 500
	})

	return &Downloader{client: client, opts: opts}
}

// LatestStable returns the newest "godot-X.Y[.Z]-stable" tag of the
// repository. Tag pages are followed through the Link header, up to
// maxTagPages pages.
func (downloader *Downloader) LatestStable(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/tags", downloader.opts.APIBaseURL, downloader.opts.Repository)
	query := map[string]string{"per_page": "100"}

	var names []gjson.Result
	for page := 0; url != "" && page < maxTagPages; page++ {
		response, err := downloader.do(ctx, url, query)
		if err != nil {
			return "", err
		}
		body := response.Body()
		if !gjson.ValidBytes(body) {
			return "", errors.Newf("tag list of %s is not valid JSON", downloader.opts.Repository)
		}
		names = append(names, gjson.GetBytes(body, "#.name").Array()...)

		// The next link carries its own query.
		url, query = nextPage(response.Header().Get("Link")), nil
	}

	tags := make(map[*version.Version]string)
	var versions []*version.Version
	for _, name := range names {
		match := stableTag.FindStringSubmatch(name.String())
		if match == nil {
			continue
		}
		v, err := version.NewVersion(match[1])
		if err != nil {
			logger.Debugw("Skipping unparsable tag", "tag", name.String(), "error", err)
			continue
		}
		tags[v] = name.String()
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return "", errors.WithHint(
			errors.Newf("no stable tags found in %s", downloader.opts.Repository),
			"pass --ref to select a tag explicitly")
	}

	sort.Sort(version.Collection(versions))
	return tags[versions[len(versions)-1]], nil
}

// Download writes extension_api.json for the configured ref to dest. The file
// is replaced atomically.
func (downloader *Downloader) Download(ctx context.Context, dest string) (*FetchResult, error) {
	ref := downloader.opts.Ref
	if ref == "" {
		latest, err := downloader.LatestStable(ctx)
		if err != nil {
			return nil, err
		}
		ref = latest
	}
	logger.Infow("Downloading extension api", "repository", downloader.opts.Repository, "ref", ref)

	body, err := downloader.get(ctx, fmt.Sprintf("%s/%s/%s/%s", downloader.opts.RawBaseURL, downloader.opts.Repository, ref, apiFilePath), nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.Newf("%s at %s is not valid JSON", apiFilePath, ref)
	}
	header := gjson.GetBytes(body, "header")
	if !header.Exists() {
		return nil, errors.NewMetadataError("", apiFilePath, "missing header in")
	}

	if err := writeFileAtomic(dest, body); err != nil {
		return nil, err
	}

	result := &FetchResult{
		Ref:     ref,
		Version: header.Get("version_full_name").String(),
		Path:    dest,
		Bytes:   len(body),
	}
	logger.Infow("Downloaded extension api", "version", result.Version, "path", dest, "bytes", result.Bytes)
	return result, nil
}

func (downloader *Downloader) get(ctx context.Context, url string, query map[string]string) ([]byte, error) {
	response, err := downloader.do(ctx, url, query)
	if err != nil {
		return nil, err
	}
	return response.Body(), nil
}

func (downloader *Downloader) do(ctx context.Context, url string, query map[string]string) (*resty.Response, error) {
	request := downloader.client.R().SetContext(ctx)
	if query != nil {
		request.SetQueryParams(query)
	}
	response, err := request.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", url)
	}
	if response.IsError() {
		return nil, errors.Newf("GET %s: %s", url, response.Status())
	}
	return response, nil
}

// nextPage extracts the rel="next" target of a GitHub Link header.
func nextPage(link string) string {
	for _, part := range strings.Split(link, ",") {
		target, params, ok := strings.Cut(part, ";")
		if !ok || !strings.Contains(params, `rel="next"`) {
			continue
		}
		return strings.Trim(strings.TrimSpace(target), "<>")
	}
	return ""
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "create temporary file for %s", path)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "chmod %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "rename into %s", path)
	}
	return nil
}
