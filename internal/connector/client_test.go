package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	var tokenRequests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "app-id", r.Form.Get("client_id"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.Handle("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New("app-id", "app-password")
	client.tokens.tokenURL = server.URL + "/token"

	return client, server
}

func Test_CreateConversationAndSend(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v3/conversations":
			var params ConversationParameters
			require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
			assert.False(t, params.IsGroup)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "conv-1"})
		case r.Method == http.MethodPost && r.URL.Path == "/v3/conversations/conv-1/activities":
			var activity Activity
			require.NoError(t, json.NewDecoder(r.Body).Decode(&activity))
			assert.Equal(t, "hello", activity.Text)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "act-1"})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client, server := testClient(t, handler)
	ctx := context.Background()

	convID, err := client.CreateConversation(ctx, server.URL, ConversationParameters{
		Members: []ChannelAccount{{ID: "29:user"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", convID)

	activityID, err := client.SendToConversation(ctx, server.URL, convID, NewTextMessage("hello"))
	require.NoError(t, err)
	assert.Equal(t, "act-1", activityID)
}

func Test_SendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "act-1"})
	})
	client, server := testClient(t, handler)

	_, err := client.SendToConversation(context.Background(), server.URL, "conv", NewTextMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func Test_SendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	client, server := testClient(t, handler)

	_, err := client.SendToConversation(context.Background(), server.URL, "conv", NewTextMessage("hi"))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func Test_AllMembersPages(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("continuationToken") {
		case "":
			_ = json.NewEncoder(w).Encode(MembersPage{
				ContinuationToken: "next",
				Members:           []ChannelAccount{{ID: "29:a", Name: "Alice"}},
			})
		case "next":
			_ = json.NewEncoder(w).Encode(MembersPage{
				Members: []ChannelAccount{{ID: "29:b", Name: "Bob"}},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	client, server := testClient(t, handler)

	members, err := client.AllMembers(context.Background(), server.URL, "19:team")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Alice", members[0].Name)
	assert.Equal(t, "Bob", members[1].Name)
}

func Test_ActivityChannelData(t *testing.T) {
	activity := Activity{
		ChannelData: json.RawMessage(`{"tenant":{"id":"t-1"},"team":{"id":"19:team"},"channel":{"id":"19:general"}}`),
		Value:       json.RawMessage(`{"action":"reveal"}`),
	}

	assert.Equal(t, "t-1", activity.TenantID())
	assert.Equal(t, "19:team", activity.TeamID())
	assert.Equal(t, "19:general", activity.ChannelDataChannelID())
	assert.Equal(t, "reveal", activity.InvokeAction())
}
