// Package chatstream is a small Go client for the chatstream server: cookie
// session login, message posting, and reading the per-conversation event
// stream.
package chatstream

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
)

// Client talks to one chatstream server on behalf of one user.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Jar: jar},
	}, nil
}

// Login authenticates and stores the session cookie on the client's jar.
func (c *Client) Login(ctx context.Context, handle, password string) error {
	form := url.Values{"handle": {handle}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", resp.Status)
	}
	return nil
}

// PostRoom posts a message to a room.
func (c *Client) PostRoom(ctx context.Context, slug, message string) error {
	return c.post(ctx, "/room/"+url.PathEscape(slug)+"/post", message)
}

// PostDM posts a direct message to a user.
func (c *Client) PostDM(ctx context.Context, handle, message string) error {
	return c.post(ctx, "/dm/"+url.PathEscape(handle)+"/post", message)
}

func (c *Client) post(ctx context.Context, path, message string) error {
	form := url.Values{"message": {message}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post failed: %s", resp.Status)
	}
	return nil
}

// Event is one unit of the server's push stream. ID is the message id and
// doubles as the resume cursor; Data is the rendered message fragment.
type Event struct {
	ID   int64
	Name string
	Data string
}

// StreamRoom opens a room's event stream starting after the given cursor.
func (c *Client) StreamRoom(ctx context.Context, slug string, since int64) (<-chan Event, error) {
	return c.stream(ctx, "/room/"+url.PathEscape(slug)+"/sse", since)
}

// StreamDM opens a direct conversation's event stream starting after the
// given cursor.
func (c *Client) StreamDM(ctx context.Context, handle string, since int64) (<-chan Event, error) {
	return c.stream(ctx, "/dm/"+url.PathEscape(handle)+"/sse", since)
}

func (c *Client) stream(ctx context.Context, path string, since int64) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s%s?since=%d", c.base, path, since), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream open failed: %s", resp.Status)
	}

	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		var ev Event
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				// Blank line terminates one event.
				if ev.Name != "" || ev.Data != "" {
					select {
					case ch <- ev:
					case <-ctx.Done():
						return
					}
				}
				ev = Event{}
			case strings.HasPrefix(line, "id: "):
				ev.ID, _ = strconv.ParseInt(line[len("id: "):], 10, 64)
			case strings.HasPrefix(line, "event: "):
				ev.Name = line[len("event: "):]
			case strings.HasPrefix(line, "data: "):
				if ev.Data != "" {
					ev.Data += "\n"
				}
				ev.Data += line[len("data: "):]
			}
		}
	}()
	return ch, nil
}
