package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSpotCreateNote(t *testing.T) {
	var got engagementRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, hubspotEngagementsEndpoint, r.URL.Path)
		assert.Equal(t, "Bearer crm-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"engagement":{"id":4242,"type":"NOTE"}}`))
	}))
	defer srv.Close()

	at := time.UnixMilli(1700000000123)
	note, err := NewHubSpotClient(srv.URL+"/", time.Second).CreateNote(context.Background(), "crm-token", "51", "note body", at)
	require.NoError(t, err)

	assert.Equal(t, "4242", note.EngagementID)
	assert.Equal(t, "51", note.ContactID)
	assert.Equal(t, "NOTE", got.Engagement.Type)
	assert.True(t, got.Engagement.Active)
	assert.Equal(t, int64(1700000000123), got.Engagement.Timestamp)
	assert.Equal(t, []int64{51}, got.Associations.ContactIDs)
	assert.Equal(t, "note body", got.Metadata.Body)
}

func TestHubSpotCreateNoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","message":"expired token"}`))
	}))
	defer srv.Close()

	_, err := NewHubSpotClient(srv.URL, time.Second).CreateNote(context.Background(), "old", "51", "body", time.Now())
	var statusErr *CRMStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "expired token")
}

func TestHubSpotCreateNoteRejectsNonNumericContact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an invalid contact id")
	}))
	defer srv.Close()

	_, err := NewHubSpotClient(srv.URL, time.Second).CreateNote(context.Background(), "tok", "abc", "body", time.Now())
	assert.ErrorIs(t, err, ErrInvalidContactID)
}
