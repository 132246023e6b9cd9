package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrt/internal/domain"
	"agentrt/internal/dispatch"
	"agentrt/internal/llm"
	"agentrt/internal/queue"
	"agentrt/internal/runtime"
	storememory "agentrt/internal/store/memory"
	"agentrt/internal/testhelpers"
)

func newTestServer(t *testing.T, fp *testhelpers.FakeProvider) (*httptest.Server, *storememory.Store) {
	t.Helper()
	st := storememory.New()
	q := queue.New()
	loop := &dispatch.Loop{
		Queue: q,
		Runtime: &runtime.Service{
			Store:       st,
			NewProvider: func(string) llm.Provider { return fp },
			Model:       "gpt-4o-mini",
		},
		Store: st,
	}
	srv := &Server{Store: st, Queue: q, Dispatch: loop}
	ts := httptest.NewServer(NewRouter(srv))
	t.Cleanup(ts.Close)
	return ts, st
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, &testhelpers.FakeProvider{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateThreadRequiresTenantID(t *testing.T) {
	ts, _ := newTestServer(t, &testhelpers.FakeProvider{})
	resp, err := http.Post(ts.URL+"/threads/", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateThreadSucceeds(t *testing.T) {
	ts, _ := newTestServer(t, &testhelpers.FakeProvider{})
	body := `{"tenant_id":"t1","title":"hi"}`
	resp, err := http.Post(ts.URL+"/threads/", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var th threadRead
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&th))
	assert.Equal(t, "t1", th.TenantID)
	assert.Equal(t, "hi", th.Title)
	assert.NotEmpty(t, th.ID)
}

func TestDeleteThreadNotFound(t *testing.T) {
	ts, _ := newTestServer(t, &testhelpers.FakeProvider{})
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/threads/does-not-exist", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteThreadSucceeds(t *testing.T) {
	ts, st := newTestServer(t, &testhelpers.FakeProvider{})
	th, err := st.CreateThread(context.Background(), "t1", "", nil)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/threads/"+th.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err = st.GetThread(context.Background(), th.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostMessageRequiresAgentID(t *testing.T) {
	ts, st := newTestServer(t, &testhelpers.FakeProvider{})
	th, err := st.CreateThread(context.Background(), "t1", "", nil)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/threads/"+th.ID+"/messages", "application/json", strings.NewReader(`{"content":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostMessageUnknownAuthorAgentIsNotFound(t *testing.T) {
	ts, st := newTestServer(t, &testhelpers.FakeProvider{})
	th, err := st.CreateThread(context.Background(), "t1", "", nil)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/threads/"+th.ID+"/messages", "application/json", strings.NewReader(`{"content":"hi","agent_id":"does-not-exist"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostMessageForeignTenantAuthorIsRejected(t *testing.T) {
	ts, st := newTestServer(t, &testhelpers.FakeProvider{})
	th, err := st.CreateThread(context.Background(), "t1", "", nil)
	require.NoError(t, err)
	otherTenant := "t2"
	st.PutAgent(domain.Agent{ID: "agent-foreign", Nature: domain.AgentHuman, TenantID: &otherTenant})

	resp, err := http.Post(ts.URL+"/threads/"+th.ID+"/messages", "application/json", strings.NewReader(`{"content":"hi","agent_id":"agent-foreign"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostMessageRequiresSystemAgent(t *testing.T) {
	ts, st := newTestServer(t, &testhelpers.FakeProvider{})
	th, err := st.CreateThread(context.Background(), "t1", "", nil)
	require.NoError(t, err)
	st.PutAgent(domain.Agent{ID: "agent-human", Nature: domain.AgentHuman, TenantID: &th.TenantID})

	resp, err := http.Post(ts.URL+"/threads/"+th.ID+"/messages", "application/json", strings.NewReader(`{"content":"hi","agent_id":"agent-human"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostMessageEnqueuesAndListMessagesReturnsHistory(t *testing.T) {
	fp := &testhelpers.FakeProvider{Responses: []llm.Response{{Content: "assistant reply"}}}
	ts, st := newTestServer(t, fp)

	th, err := st.CreateThread(context.Background(), "t1", "", nil)
	require.NoError(t, err)
	st.PutAgent(domain.Agent{ID: "agent-sys", Nature: domain.AgentSystem, TenantID: &th.TenantID})
	st.PutAgent(domain.Agent{ID: "agent-human", Nature: domain.AgentHuman, TenantID: &th.TenantID})

	resp, err := http.Post(ts.URL+"/threads/"+th.ID+"/messages", "application/json", strings.NewReader(`{"content":"hello","agent_id":"agent-human"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	assert.Equal(t, "processing", accepted["status"])
	assert.NotEmpty(t, accepted["message_id"])

	// Wait for the background dispatch loop to persist the assistant reply.
	require.Eventually(t, func() bool {
		history, err := st.GetHistory(context.Background(), th.ID)
		return err == nil && len(history) == 2
	}, 2*time.Second, 10*time.Millisecond)

	listResp, err := http.Get(ts.URL + "/threads/" + th.ID + "/messages")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var msgs []messageRead
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "assistant reply", msgs[1].Content)
}

func TestPostMessageAddsAuthorToThreadAgents(t *testing.T) {
	fp := &testhelpers.FakeProvider{Responses: []llm.Response{{Content: "assistant reply"}}}
	ts, st := newTestServer(t, fp)

	th, err := st.CreateThread(context.Background(), "t1", "", nil)
	require.NoError(t, err)
	st.PutAgent(domain.Agent{ID: "agent-sys", Nature: domain.AgentSystem, TenantID: &th.TenantID})
	st.PutAgent(domain.Agent{ID: "agent-human", Nature: domain.AgentHuman, TenantID: &th.TenantID})

	resp, err := http.Post(ts.URL+"/threads/"+th.ID+"/messages", "application/json", strings.NewReader(`{"content":"hello","agent_id":"agent-human"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	updated, err := st.GetThread(context.Background(), th.ID)
	require.NoError(t, err)
	assert.True(t, updated.HasAgent("agent-human"))
}

func TestListMessagesNotFound(t *testing.T) {
	ts, _ := newTestServer(t, &testhelpers.FakeProvider{})
	resp, err := http.Get(ts.URL + "/threads/does-not-exist/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamThreadNotFound(t *testing.T) {
	ts, _ := newTestServer(t, &testhelpers.FakeProvider{})
	resp, err := http.Get(ts.URL + "/threads/does-not-exist/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamThreadDeliversSSEFramesUntilStreamEnd(t *testing.T) {
	fp := &testhelpers.FakeProvider{Responses: []llm.Response{{Content: "streamed answer"}}}
	ts, st := newTestServer(t, fp)

	th, err := st.CreateThread(context.Background(), "t1", "", nil)
	require.NoError(t, err)
	st.PutAgent(domain.Agent{ID: "agent-sys", Nature: domain.AgentSystem, TenantID: &th.TenantID})
	st.PutAgent(domain.Agent{ID: "agent-human", Nature: domain.AgentHuman, TenantID: &th.TenantID})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/threads/"+th.ID+"/stream", nil)
	streamResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer streamResp.Body.Close()
	assert.Equal(t, "text/event-stream", streamResp.Header.Get("Content-Type"))

	postResp, err := http.Post(ts.URL+"/threads/"+th.ID+"/messages", "application/json", strings.NewReader(`{"content":"hello","agent_id":"agent-human"}`))
	require.NoError(t, err)
	postResp.Body.Close()

	var sawDone, sawEnd bool
	scanner := bufio.NewScanner(streamResp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		if frame["type"] == "done" {
			sawDone = true
		}
		if frame["type"] == "stream_end" {
			sawEnd = true
			break
		}
	}
	assert.True(t, sawDone, "expected a done frame before the stream closed")
	assert.True(t, sawEnd, "expected a stream_end frame to terminate the stream")
}
