package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servigo-client/api"
	"servigo-client/models"
)

func chatClient(serverURL string, role models.Role) *api.Client {
	return api.NewClient(serverURL, 5*time.Second, api.StaticToken("tok"), role)
}

func TestSendRejectsEmptyMessageWithoutRequest(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	thread := NewThread(chatClient(server.URL, models.RoleUser), 5, Config{})

	_, err := thread.Send(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = thread.Send(context.Background(), "   \t  ", nil)
	require.ErrorIs(t, err, ErrEmptyMessage)

	assert.Zero(t, requests.Load(), "no network call for an empty message")
}

func TestSendAcceptsAttachmentOnlyMessage(t *testing.T) {
	var sawFile, sawText atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"messages": []}`))
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		if files := r.MultipartForm.File["attachments"]; len(files) == 1 {
			sawFile.Store(true)
		}
		sawText.Store(r.FormValue("text") != "")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message": {"id": 1}}`))
	}))
	defer server.Close()

	thread := NewThread(chatClient(server.URL, models.RoleServicer), 5, Config{})
	upload := api.Upload{
		FieldName: "attachments",
		FileName:  "receipt.jpg",
		Content:   strings.NewReader("jpeg-bytes"),
	}

	msg, err := thread.Send(context.Background(), "", []api.Upload{upload})
	require.NoError(t, err)
	assert.EqualValues(t, 1, msg.ID)
	assert.True(t, sawFile.Load(), "attachment must be transmitted")
	assert.False(t, sawText.Load())
}

func TestThreadEndpointFollowsRole(t *testing.T) {
	for _, role := range []models.Role{models.RoleUser, models.RoleServicer, models.RoleAdmin} {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte(`{"messages": []}`))
		}))

		thread := NewThread(chatClient(server.URL, role), 42, Config{})
		require.NoError(t, thread.Poll(context.Background()))
		assert.Equal(t, "/"+string(role)+"/transaction-issues/42/chat", gotPath)
		server.Close()
	}
}

func TestPollAppliesMessagesAndRunStopsOnCancel(t *testing.T) {
	var polls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []models.IssueMessage{
				{ID: 1, IssueID: 9, SenderRole: models.RoleAdmin, Text: "looking into it"},
			},
		})
	}))
	defer server.Close()

	thread := NewThread(chatClient(server.URL, models.RoleUser), 9, Config{
		Interval:       15 * time.Millisecond,
		JitterFraction: 0.1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- thread.Run(ctx) }()

	require.Eventually(t, func() bool { return polls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	messages := thread.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "looking into it", messages[0].Text)

	settled := polls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, settled, polls.Load(), "no polls after cancellation")
}

func TestStaleThreadResponseIsDropped(t *testing.T) {
	firstArrived := make(chan struct{})
	releaseFirst := make(chan struct{})
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			close(firstArrived)
			<-releaseFirst
			w.Write([]byte(`{"messages": [{"id": 1, "text": "old"}]}`))
			return
		}
		w.Write([]byte(`{"messages": [{"id": 1, "text": "old"}, {"id": 2, "text": "new"}]}`))
	}))
	defer server.Close()

	thread := NewThread(chatClient(server.URL, models.RoleUser), 9, Config{})

	// First poll claims its sequence number, then stalls on the wire.
	slow := make(chan error, 1)
	go func() { slow <- thread.Poll(context.Background()) }()
	<-firstArrived

	// Second poll overtakes and applies the fresher thread.
	require.NoError(t, thread.Poll(context.Background()))
	require.Len(t, thread.Messages(), 2)

	// The delayed first response must not roll the thread back.
	close(releaseFirst)
	require.NoError(t, <-slow)
	messages := thread.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "new", messages[1].Text)
}

func TestThreadJitteredIntervalStaysWithinBounds(t *testing.T) {
	base := 3 * time.Second
	fraction := 0.2
	thread := NewThread(nil, 1, Config{
		Interval:       base,
		JitterFraction: fraction,
	})

	spread := time.Duration(float64(base) * fraction)
	for i := 0; i < 500; i++ {
		interval := thread.jitteredInterval()
		assert.GreaterOrEqual(t, interval, base-spread)
		assert.LessOrEqual(t, interval, base+spread)
	}
}
