package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const storageBase = "https://storage.googleapis.com/storage/v1"

// ObjectInfo describes a stored object returned by List.
type ObjectInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

// List returns the objects under the given prefix in the default bucket,
// following result pages until exhausted.
func (c *Client) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}

	var out []ObjectInfo
	pageToken := ""
	for {
		u := fmt.Sprintf("%s/b/%s/o?prefix=%s",
			storageBase,
			url.PathEscape(c.defaultBucket),
			url.QueryEscape(prefix),
		)
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("gcs list %q: %s: %s", prefix, resp.Status, strings.TrimSpace(string(body)))
		}

		var page struct {
			Items         []ObjectInfo `json:"items"`
			NextPageToken string       `json:"nextPageToken"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("gcs list decode: %w", err)
		}
		_ = resp.Body.Close()

		out = append(out, page.Items...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// Download fetches the object bytes and content type from the default bucket.
func (c *Client) Download(ctx context.Context, object string) ([]byte, string, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, "", err
	}

	u := fmt.Sprintf("%s/b/%s/o/%s?alt=media",
		storageBase,
		url.PathEscape(c.defaultBucket),
		url.PathEscape(object),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", fmt.Errorf("gcs download %q: %s: %s", object, resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("gcs download %q: reading body: %w", object, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Upload writes the object to the default bucket using simple media upload.
func (c *Client) Upload(ctx context.Context, object string, data []byte, contentType string) error {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("https://storage.googleapis.com/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		url.PathEscape(c.defaultBucket),
		url.QueryEscape(object),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gcs upload %q: %s: %s", object, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// MakePublic grants allUsers read access to the object.
func (c *Client) MakePublic(ctx context.Context, object string) error {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/b/%s/o/%s/acl",
		storageBase,
		url.PathEscape(c.defaultBucket),
		url.PathEscape(object),
	)

	payload, err := json.Marshal(map[string]string{
		"entity": "allUsers",
		"role":   "READER",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gcs make public %q: %s: %s", object, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// PublicURL returns the unauthenticated URL for an object made public.
func (c *Client) PublicURL(object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.defaultBucket, object)
}
