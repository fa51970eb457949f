package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"clash-bot/config"
	"clash-bot/utils"
)

// ErrSocialPublish is returned when the post exists but the publish step was refused.
var ErrSocialPublish = errors.New("social publish failed")

// PublishResult identifies the published tweet.
type PublishResult struct {
	TweetID string `json:"tweetId"`
	URL     string `json:"url"`
}

// SocialClient talks to the Popching posting service, which relays to X.
type SocialClient struct {
	baseURL string
	secret  string
	project string
	http    *http.Client
}

func NewSocialClient(cfg config.PopchingConfig, client *http.Client) *SocialClient {
	if client == nil {
		client = utils.NewHTTPClient(30 * time.Second)
	}
	return &SocialClient{baseURL: cfg.URL, secret: cfg.Secret, project: cfg.Project, http: client}
}

func (c *SocialClient) Enabled() bool {
	return c != nil && c.baseURL != "" && c.secret != ""
}

func (c *SocialClient) endpoint(path string) string {
	return c.baseURL + path + "?secret=" + url.QueryEscape(c.secret)
}

func (c *SocialClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("popching %s %s: %w", method, path, err)
	}
	defer utils.DrainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.StatusError(resp, "popching "+path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode popching %s: %w", path, err)
	}
	return nil
}

// CreatePost creates a draft post and returns its id.
func (c *SocialClient) CreatePost(ctx context.Context, text string) (string, error) {
	var resp struct {
		Item struct {
			ID string `json:"_id"`
		} `json:"item"`
	}
	body := map[string]string{"project": c.project, "text": text, "platform": "twitter"}
	if err := c.do(ctx, http.MethodPost, "/api/posts", body, &resp); err != nil {
		return "", err
	}
	if resp.Item.ID == "" {
		return "", errors.New("popching create post: response has no id")
	}
	return resp.Item.ID, nil
}

// AttachImage sets the post's image. Relative URLs are resolved against the service.
func (c *SocialClient) AttachImage(ctx context.Context, postID, imageURL string) error {
	if len(imageURL) > 0 && imageURL[0] == '/' {
		imageURL = c.baseURL + imageURL
	}
	body := map[string]any{"content": map[string]string{"imageUrl": imageURL}}
	return c.do(ctx, http.MethodPatch, "/api/posts/"+url.PathEscape(postID), body, nil)
}

// Publish pushes the draft to X.
func (c *SocialClient) Publish(ctx context.Context, postID string) (PublishResult, error) {
	var resp struct {
		PublishResult
		Error string `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/publish", nil, &resp); err != nil {
		return PublishResult{}, err
	}
	if resp.Error != "" || resp.TweetID == "" {
		msg := resp.Error
		if msg == "" {
			msg = "no tweet id returned"
		}
		return PublishResult{}, fmt.Errorf("%w: %s", ErrSocialPublish, msg)
	}
	return resp.PublishResult, nil
}
