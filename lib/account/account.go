// Package account talks to the remote account service that stores users and
// merges watch progress across devices. Conflict resolution happens server
// side: a sync pushes the local snapshot and the response carries the merged
// set, which replaces local state.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/mediadex/mediadex/lib/lock"
	"github.com/mediadex/mediadex/models"
)

const (
	// syncCooldown keeps a chatty client from spamming the service.
	syncCooldown = 10 * time.Second

	syncLockKey = "account-sync"
)

// ErrSyncedRecently is returned when a sync is requested again within the
// cooldown window. Callers should treat it as "nothing to do".
var ErrSyncedRecently = errors.New("account: synced too recently")

// User is one account on the remote service.
type User struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
	Image    string `json:"image"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	lock       *lock.FileLock

	mu       sync.Mutex
	lastSync time.Time
}

func NewClient(baseURL string, fileLock *lock.FileLock, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		lock:       fileLock,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("account request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("account service returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Users lists all accounts known to the service.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var data struct {
		Rows []User `json:"rows"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", nil, &data); err != nil {
		return nil, err
	}
	return data.Rows, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, username, image string) (*User, error) {
	body := map[string]string{"username": username, "image": image}
	var user User
	if err := c.do(ctx, http.MethodPost, "/users", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes an account and everything stored under it.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/users/"+strconv.FormatInt(id, 10), nil, nil)
}

type syncPayload struct {
	Progress []models.ProgressItem `json:"progress"`
}

type syncResponse struct {
	Progress []models.ProgressItem `json:"progress"`
	Error    string                `json:"error"`
}

// SyncProgress pushes the local progress snapshot and returns the merged
// set the server computed. Syncs are throttled to one per cooldown window
// and serialized through the file lock, so concurrent pushes from the same
// host cannot interleave.
func (c *Client) SyncProgress(ctx context.Context, userID int64, items []models.ProgressItem) ([]models.ProgressItem, error) {
	c.mu.Lock()
	if time.Since(c.lastSync) < syncCooldown {
		c.mu.Unlock()
		return nil, ErrSyncedRecently
	}
	c.lastSync = time.Now()
	c.mu.Unlock()

	acquired, err := c.lock.TryLock(ctx, syncLockKey, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, ErrSyncedRecently
	}
	defer func() {
		if err := c.lock.Unlock(ctx, syncLockKey); err != nil {
			c.logger.Error("failed to release sync lock", slog.Any("error", err))
		}
	}()

	var data syncResponse
	path := "/users/" + strconv.FormatInt(userID, 10) + "/progress"
	if err := c.do(ctx, http.MethodPost, path, syncPayload{Progress: items}, &data); err != nil {
		return nil, err
	}
	if data.Error != "" {
		return nil, fmt.Errorf("account service rejected sync: %s", data.Error)
	}

	c.logger.Info("synced progress",
		slog.Int64("user_id", userID),
		slog.Int("pushed", len(items)),
		slog.Int("merged", len(data.Progress)))
	return data.Progress, nil
}

// DeleteProgress removes one progress item from the remote account.
func (c *Client) DeleteProgress(ctx context.Context, userID int64, handle string) error {
	path := "/users/" + strconv.FormatInt(userID, 10) + "/progress/item/" + url.PathEscape(handle)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
