package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newForecastRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/select", NewForecastHandler().SelectAlgorithm)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSelectAlgorithmEndpoint(t *testing.T) {
	r := newForecastRouter()

	w := postJSON(t, r, "/select", `{"data_points": 104, "zeros_percentage": 5, "has_yearly_data": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Algorithm string `json:"algorithm"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Algorithm != "prophet" {
		t.Errorf("algorithm = %q, want prophet", resp.Algorithm)
	}
	if resp.Reason == "" {
		t.Error("reason should not be empty")
	}
}

func TestSelectAlgorithmEndpointRejectsBadInput(t *testing.T) {
	r := newForecastRouter()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"data_points":`},
		{"negative data points", `{"data_points": -1}`},
		{"zeros percentage over 100", `{"data_points": 50, "zeros_percentage": 150}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(t, r, "/select", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}
