package gateway

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

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/api")
}

func TestListPlantTypesEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user/plant-types/all", r.URL.Path)
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[{"id":1,"name":"Fern","description":"green"},{"id":2,"name":"Aloe"}]}`))
	})
	c = c.WithHeader(http.Header{"Authorization": []string{"Bearer abc"}})

	plants, err := c.ListPlantTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, plants, 2)
	assert.Equal(t, "Fern", plants[0].Name)
	assert.Equal(t, "green", plants[0].Description)
	assert.Equal(t, int64(2), plants[1].ID)
}

func TestListPlantTypesBareArray(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":3,"name":"Cactus"}]`))
	})
	plants, err := c.ListPlantTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, plants, 1)
	assert.Equal(t, "Cactus", plants[0].Name)
}

func TestGetQuestionnaireNormalizes(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user/questionnaire/plant-type/9", r.URL.Path)
		w.Write([]byte(`{"questions":[
			{"id":10,"question_text":"No order","answers":[{"id":1,"answer_text":"x"}]},
			{"id":11,"question_text":"Second","order":2,"answers":[{"id":2,"answer_text":"a"},{"id":3,"answer_text":"  "}]},
			{"id":12,"question_text":"  ","order":0},
			{"id":13,"question_text":"No answers","order":1}
		]}`))
	})

	q, err := c.GetQuestionnaire(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), q.PlantTypeID)
	require.Len(t, q.Questions, 3)
	assert.Equal(t, "No order", q.Questions[0].Text)
	assert.Equal(t, 3, q.Questions[0].Order)
	assert.Len(t, q.Questions[1].Answers, 1)
	assert.NotNil(t, q.Questions[2].Answers)
	assert.Empty(t, q.Questions[2].Answers)
}

func TestGenerateDiagnosis(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Plant: Fern", req["text"])
		assert.Equal(t, float64(4), req["plant_type_id"])
		w.Write([]byte(`{"data":"**Healthy**"}`))
	})

	d, err := c.GenerateDiagnosis(context.Background(), "Plant: Fern", 4)
	require.NoError(t, err)
	assert.Equal(t, "**Healthy**", d)
}

func TestGenerateDiagnosisEmpty(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	})
	_, err := c.GenerateDiagnosis(context.Background(), "t", 1)
	assert.ErrorIs(t, err, ErrEmptyDiagnosis)
}

func TestStatusErrorIsSingleAttempt(t *testing.T) {
	calls := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`down`))
	})

	_, err := c.ListPlantTypes(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "down", se.Body)
	assert.Equal(t, 1, calls)
}

func TestReports(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/api/user/user-reports/all", r.URL.Path)
			w.Write([]byte(`{"data":[{"id":5,"plant_type":{"id":1,"name":"Fern"},"ai_diagnosis":"ok","created_at":"2024-05-01T10:00:00.000000Z"}]}`))
		case http.MethodDelete:
			assert.Equal(t, "/api/user/user-reports/delete/5", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	})

	reports, err := c.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Fern", reports[0].PlantType.Name)
	assert.Equal(t, 2024, reports[0].CreatedAt.Year())

	require.NoError(t, c.DeleteReport(context.Background(), 5))
}
