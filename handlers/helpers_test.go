package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/mahjong-scorebook/scoring"
	"github.com/Dosada05/mahjong-scorebook/services"
	"github.com/Dosada05/mahjong-scorebook/sharecode"
)

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("3, 5,8")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 8}, ids)

	ids, err = parseIDList("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, bad := range []string{"1,,2", "a", "-4", "0"} {
		_, err := parseIDList(bad)
		assert.Error(t, err, bad)
	}
}

func TestGetIDFromURL(t *testing.T) {
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("gameID", value)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := getIDFromURL(withParam("12"), "gameID")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"", "x1", "0", "-3"} {
		_, err := getIDFromURL(withParam(bad), "gameID")
		assert.Error(t, err, bad)
	}
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrGameNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrRoundNotFound), http.StatusNotFound},
		{scoring.ValidateDeltas([]int{0, 0, 0}), http.StatusUnprocessableEntity},
		{services.ErrDuplicatePlayerName, http.StatusUnprocessableEntity},
		{&sharecode.MalformedCodeError{Stage: "base64"}, http.StatusBadRequest},
		{&sharecode.InvalidPayloadError{Field: "v", Reason: "unsupported"}, http.StatusBadRequest},
		{services.ErrGameFinished, http.StatusConflict},
		{services.ErrGameHasRounds, http.StatusConflict},
		{errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
