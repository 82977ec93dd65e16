package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(method string, body map[string]interface{}) (int, string)) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		// Path is /bot<token>/<method>
		method := r.URL.Path[len("/bottest-token/"):]
		status, resp := handler(method, body)
		w.WriteHeader(status)
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, NewClient("test-token", WithBaseURL(srv.URL))
}

func TestClient_SendMessage(t *testing.T) {
	var gotBody map[string]interface{}
	_, client := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		assert.Equal(t, "sendMessage", method)
		gotBody = body
		return http.StatusOK, `{"ok":true,"result":{"message_id":321}}`
	})

	kb := Keyboard{{{Text: "Back", CallbackData: "back"}}}
	id, err := client.SendMessage(context.Background(), 42, "hello", kb)

	require.NoError(t, err)
	assert.Equal(t, int64(321), id)
	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "hello", gotBody["text"])
	assert.Contains(t, gotBody, "reply_markup")
}

func TestClient_SendMessage_NoKeyboard(t *testing.T) {
	_, client := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		assert.NotContains(t, body, "reply_markup")
		return http.StatusOK, `{"ok":true,"result":{"message_id":1}}`
	})

	_, err := client.SendMessage(context.Background(), 42, "hello", nil)
	require.NoError(t, err)
}

func TestClient_DeleteMessage_Gone(t *testing.T) {
	_, client := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		return http.StatusOK, `{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`
	})

	err := client.DeleteMessage(context.Background(), 42, 99)
	assert.True(t, errors.Is(err, ErrMessageGone))
}

func TestClient_APIError(t *testing.T) {
	_, client := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		return http.StatusOK, `{"ok":false,"error_code":429,"description":"Too Many Requests"}`
	})

	_, err := client.SendMessage(context.Background(), 42, "hello", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMessageGone))
	assert.Contains(t, err.Error(), "Too Many Requests")
}

func TestClient_SendInvoice(t *testing.T) {
	var gotBody map[string]interface{}
	_, client := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		assert.Equal(t, "sendInvoice", method)
		gotBody = body
		return http.StatusOK, `{"ok":true,"result":true}`
	})

	err := client.SendInvoice(context.Background(), 42, "50 Points", "Point pack", "points_50:42",
		[]LabeledPrice{{Label: "50 Points", Amount: 25}})

	require.NoError(t, err)
	assert.Equal(t, "XTR", gotBody["currency"])
	assert.Equal(t, "points_50:42", gotBody["payload"])
}

func TestClient_AnswerPreCheckoutQuery(t *testing.T) {
	var gotBody map[string]interface{}
	_, client := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		assert.Equal(t, "answerPreCheckoutQuery", method)
		gotBody = body
		return http.StatusOK, `{"ok":true,"result":true}`
	})

	err := client.AnswerPreCheckoutQuery(context.Background(), "q1", false, "unknown package")

	require.NoError(t, err)
	assert.Equal(t, false, gotBody["ok"])
	assert.Equal(t, "unknown package", gotBody["error_message"])
}

func TestClient_ContextCancelled(t *testing.T) {
	_, client := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		return http.StatusOK, `{"ok":true,"result":{"message_id":1}}`
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SendMessage(ctx, 42, "hello", nil)
	assert.Error(t, err)
}
