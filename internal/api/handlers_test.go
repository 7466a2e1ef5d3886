package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/workforce-monitor/internal/repository/postgres"
	"github.com/ignite/workforce-monitor/internal/service/dataset"
	"github.com/ignite/workforce-monitor/internal/timenorm"
)

type mockImports struct {
	entries []postgres.ImportEntry
}

func (m *mockImports) List(_ context.Context, limit int) ([]postgres.ImportEntry, error) {
	if limit < len(m.entries) {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

func setupTestServer(t *testing.T) (http.Handler, *dataset.Service) {
	t.Helper()
	svc := dataset.NewService(nil)
	h := NewHandlers(svc, &mockImports{entries: []postgres.ImportEntry{
		{OriginalKey: "drops/a.csv", Status: "completed", RecordCount: 12, CreatedAt: time.Now()},
	}}, nil)
	return SetupRoutes(h, nil), svc
}

const sampleCSV = "Contractor,Role,Worker Name,Worker ID,In,Out,Area\n" +
	"Acme,Operative,John,1,13/06/2024 08:00,13/06/2024 16:00,Site\n" +
	"Acme,Operative,Jane,2,13/06/2024 08:00,13/06/2024 16:00,Welfare\n"

func uploadCSV(t *testing.T, handler http.Handler, filename, content string) dataset.Summary {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var sum dataset.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	return sum
}

func TestUploadDataset(t *testing.T) {
	handler, _ := setupTestServer(t)

	sum := uploadCSV(t, handler, "june.csv", sampleCSV)
	assert.Equal(t, "june.csv", sum.Name)
	assert.False(t, sum.Synthetic)
	assert.Equal(t, 2, sum.Records)
	assert.NotEmpty(t, sum.ID)
}

func TestUploadRawBody(t *testing.T) {
	handler, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/datasets?name=raw.csv", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var sum dataset.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.Equal(t, "raw.csv", sum.Name)
}

func TestUploadGarbageYieldsSyntheticDataset(t *testing.T) {
	handler, _ := setupTestServer(t)

	sum := uploadCSV(t, handler, "empty.csv", "")
	assert.True(t, sum.Synthetic)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+sum.ID+"/aggregated", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var records []timenorm.AggregatedRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	assert.NotEmpty(t, records)
}

func TestGetAggregatedWithFilters(t *testing.T) {
	handler, _ := setupTestServer(t)
	sum := uploadCSV(t, handler, "june.csv", sampleCSV)

	req := httptest.NewRequest(http.MethodGet,
		"/api/datasets/"+sum.ID+"/aggregated?contractor=Acme&period=2024-W24", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var records []timenorm.AggregatedRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "2024-W24", records[0].Period)
	assert.Equal(t, 2, records[0].WorkerCount)
}

func TestGetDatasetNotFound(t *testing.T) {
	handler, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/nope", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListDatasets(t *testing.T) {
	handler, _ := setupTestServer(t)
	uploadCSV(t, handler, "a.csv", sampleCSV)
	uploadCSV(t, handler, "b.csv", sampleCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var list []dataset.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "b.csv", list[0].Name)
}

func TestGetPeriods(t *testing.T) {
	handler, _ := setupTestServer(t)
	sum := uploadCSV(t, handler, "june.csv", sampleCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+sum.ID+"/periods", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var periods []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &periods))
	assert.Equal(t, []string{"2024-W24"}, periods)
}

func TestGetPalette(t *testing.T) {
	handler, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/palette", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var palette []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &palette))
	require.Len(t, palette, 10)
	assert.Equal(t, "#BB86FC", palette[0])
}

func TestGetImports(t *testing.T) {
	handler, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var entries []postgres.ImportEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "drops/a.csv", entries[0].OriginalKey)
}

func TestHealthCheck(t *testing.T) {
	handler, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ok"`)
}

func TestContractorStatsEndpoint(t *testing.T) {
	handler, _ := setupTestServer(t)
	sum := uploadCSV(t, handler, "june.csv", sampleCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+sum.ID+"/contractor-stats", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var stats []dataset.ContractorStat
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "Acme", stats[0].Contractor)
	assert.Equal(t, 2, stats[0].PeakWorkers)
}
