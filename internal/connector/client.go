package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
)

const defaultHTTPTimeout = 30 * time.Second

const sendAttempts = 3

type InvalidResponseStatusCodeError int

func (e InvalidResponseStatusCodeError) Error() string {
	return "invalid response status code " + strconv.Itoa(int(e))
}

type Client struct {
	tokens *tokenSource
	client *http.Client
}

func New(appID, appPassword string) *Client {
	httpClient := &http.Client{Timeout: defaultHTTPTimeout}

	return &Client{
		tokens: newTokenSource(appID, appPassword, httpClient),
		client: httpClient,
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return errors.WithMessage(err, "failed to marshal request")
		}
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
			if err != nil {
				return errors.WithMessage(err, "failed to build request")
			}
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			token, err := c.tokens.Token(ctx)
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := c.client.Do(req)
			if err != nil {
				return errors.WithMessage(err, "request failed")
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
				err = InvalidResponseStatusCodeError(resp.StatusCode)
				if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
					// The request itself is wrong, retrying won't help.
					return retry.Unrecoverable(err)
				}

				return err
			}

			if out != nil {
				return json.NewDecoder(resp.Body).Decode(out)
			}
			_, _ = io.Copy(io.Discard, resp.Body)

			return nil
		},
		retry.Attempts(sendAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

type resourceResponse struct {
	ID string `json:"id"`
}

func baseURL(serviceURL string) string {
	if strings.HasSuffix(serviceURL, "/") {
		return serviceURL
	}

	return serviceURL + "/"
}

// CreateConversation opens a conversation (a DM or a channel post) and
// returns its id.
func (c *Client) CreateConversation(
	ctx context.Context, serviceURL string, params ConversationParameters,
) (string, error) {
	var resource resourceResponse
	err := c.do(ctx, http.MethodPost, baseURL(serviceURL)+"v3/conversations", params, &resource)
	if err != nil {
		return "", errors.WithMessage(err, "failed to create conversation")
	}

	return resource.ID, nil
}

// SendToConversation posts an activity and returns the created activity id.
func (c *Client) SendToConversation(
	ctx context.Context, serviceURL, conversationID string, activity Activity,
) (string, error) {
	var resource resourceResponse
	endpoint := baseURL(serviceURL) + "v3/conversations/" + url.PathEscape(conversationID) + "/activities"
	err := c.do(ctx, http.MethodPost, endpoint, activity, &resource)
	if err != nil {
		return "", errors.WithMessage(err, "failed to send activity")
	}

	return resource.ID, nil
}

// UpdateActivity replaces an already delivered activity, e.g. to swap a
// reveal button for the revealed name.
func (c *Client) UpdateActivity(
	ctx context.Context, serviceURL, conversationID, activityID string, activity Activity,
) error {
	endpoint := baseURL(serviceURL) + "v3/conversations/" + url.PathEscape(conversationID) +
		"/activities/" + url.PathEscape(activityID)
	err := c.do(ctx, http.MethodPut, endpoint, activity, nil)

	return errors.WithMessage(err, "failed to update activity")
}

func (c *Client) DeleteActivity(
	ctx context.Context, serviceURL, conversationID, activityID string,
) error {
	endpoint := baseURL(serviceURL) + "v3/conversations/" + url.PathEscape(conversationID) +
		"/activities/" + url.PathEscape(activityID)
	err := c.do(ctx, http.MethodDelete, endpoint, nil, nil)

	return errors.WithMessage(err, "failed to delete activity")
}

// PagedMembers fetches one page of conversation members.
func (c *Client) PagedMembers(
	ctx context.Context, serviceURL, conversationID, continuationToken string,
) (MembersPage, error) {
	endpoint := baseURL(serviceURL) + "v3/conversations/" + url.PathEscape(conversationID) + "/pagedmembers"
	if continuationToken != "" {
		endpoint += "?continuationToken=" + url.QueryEscape(continuationToken)
	}

	var page MembersPage
	err := c.do(ctx, http.MethodGet, endpoint, nil, &page)
	if err != nil {
		return MembersPage{}, errors.WithMessage(err, "failed to fetch members")
	}

	return page, nil
}

// AllMembers walks every page of conversation members.
func (c *Client) AllMembers(
	ctx context.Context, serviceURL, conversationID string,
) ([]ChannelAccount, error) {
	var members []ChannelAccount
	token := ""
	for {
		page, err := c.PagedMembers(ctx, serviceURL, conversationID, token)
		if err != nil {
			return nil, err
		}
		members = append(members, page.Members...)

		if page.ContinuationToken == "" {
			return members, nil
		}
		token = page.ContinuationToken
	}
}
