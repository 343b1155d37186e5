package device

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PlantDash/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodBody = `{
  "data": {"time": 3, "weight": [1, 2, 3, 4], "water": [0, 0, 5, 0]},
  "mindata": {"time": 59, "weight": [4, 4]},
  "config": {"max": 5000, "low": 20, "high": 50, "range": 5, "waterhour": 7},
  "watertime": {"scale": 40, "offset": 2}
}`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchDecodesSnapshot(t *testing.T) {
	srv := serve(t, http.StatusOK, goodBody)
	c := New("fern", srv.URL+"/", time.Second, nil)

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Data.Time)
	assert.Equal(t, []float64{1, 2, 3, 4}, snap.Data.Weight)
	assert.Equal(t, []float64{4, 4}, snap.MinData.Weight)
	assert.Equal(t, 50.0, snap.Config.Dst)
	assert.Equal(t, 7, snap.Config.WaterHour)
	require.NotNil(t, snap.WaterTime)
	assert.Equal(t, 40, snap.WaterTime.Scale)
	assert.Equal(t, "fern", c.Name())
}

func TestFetchNon200IsNetworkFailure(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "busy")
	c := New("fern", srv.URL, time.Second, nil)

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNetworkFailure))
	assert.False(t, errors.Is(err, models.ErrInvalidPayload))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindNetworkFailure, fe.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, fe.Status)
}

func TestFetchOtherSuccessCodesAreNetworkFailures(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusNonAuthoritativeInfo, http.StatusNoContent} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := serve(t, status, goodBody)
			snap, err := New("fern", srv.URL, time.Second, nil).Fetch(context.Background())
			require.Error(t, err)
			assert.Nil(t, snap)
			assert.ErrorIs(t, err, models.ErrNetworkFailure)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, status, fe.Status)
		})
	}
}

func TestFetchUnreachableIsNetworkFailure(t *testing.T) {
	srv := serve(t, http.StatusOK, goodBody)
	url := srv.URL
	srv.Close()

	_, err := New("fern", url, time.Second, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrNetworkFailure)
}

func TestFetchTimeoutIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := New("fern", srv.URL, 50*time.Millisecond, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, models.ErrNetworkFailure)
}

func TestFetchInvalidPayload(t *testing.T) {
	cases := map[string]string{
		"not json":          "<html>",
		"mismatched series": `{"data":{"time":1,"weight":[1,2],"water":[0]},"mindata":{},"config":{}}`,
		"wrong type":        `{"data":{"time":"x"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, body)
			_, err := New("fern", srv.URL, time.Second, nil).Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidPayload)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, KindInvalidPayload, fe.Kind)
		})
	}
}

func TestFetchDecodeErrorKeepsStatus(t *testing.T) {
	srv := serve(t, http.StatusOK, "")
	_, err := New("fern", srv.URL, time.Second, nil).Fetch(context.Background())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindInvalidPayload, fe.Kind)
	assert.Equal(t, http.StatusOK, fe.Status)
}
