package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gofrs/uuid"

	"github.com/adforge-ai/adgen-backend/pkg/constant"
	errorsx "github.com/adforge-ai/adgen-backend/pkg/errors"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/service"
	"github.com/adforge-ai/adgen-backend/pkg/types"
)

type fakeService struct {
	generateFn func(ctx context.Context, param service.GenerateAdsParam) (*service.GenerateAdsResult, error)
	getFn      func(ctx context.Context, uid types.RequestUIDType) (*repository.AdRequest, []repository.AdVariant, error)
	listFn     func(ctx context.Context, tenantUID types.TenantUIDType, limit int, before *time.Time) ([]repository.AdRequest, error)
}

func (f *fakeService) GenerateAds(ctx context.Context, param service.GenerateAdsParam) (*service.GenerateAdsResult, error) {
	return f.generateFn(ctx, param)
}

func (f *fakeService) GetAdRequest(ctx context.Context, uid types.RequestUIDType) (*repository.AdRequest, []repository.AdVariant, error) {
	return f.getFn(ctx, uid)
}

func (f *fakeService) ListAdRequests(ctx context.Context, tenantUID types.TenantUIDType, limit int, before *time.Time) ([]repository.AdRequest, error) {
	return f.listFn(ctx, tenantUID, limit, before)
}

type healthyVectorDB struct {
	repository.VectorDatabase
}

func (healthyVectorDB) GetHealth(ctx context.Context) (bool, error) { return true, nil }

func serveJSON(t *testing.T, svc service.Service, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	router := SetupRouter(NewAdHandler(svc), healthyVectorDB{}, false)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validPayload() CreateAdRequestPayload {
	return CreateAdRequestPayload{
		TenantUID:   uuid.Must(uuid.NewV4()).String(),
		Platform:    "meta",
		Goal:        "conversion",
		Description: "A smart alarm clock",
	}
}

func TestCreateAdRequest(t *testing.T) {
	c := qt.New(t)

	requestUID := uuid.Must(uuid.NewV4())
	var gotParam service.GenerateAdsParam
	svc := &fakeService{
		generateFn: func(ctx context.Context, param service.GenerateAdsParam) (*service.GenerateAdsResult, error) {
			gotParam = param
			return &service.GenerateAdsResult{
				RequestUID:   requestUID,
				Variants:     []repository.AdVariant{{}, {}, {}},
				GenerationMS: 1234,
				CostEstimate: 0.05,
			}, nil
		},
	}

	payload := validPayload()
	payload.Length.Mode = "AUTO"
	payload.Length.Price = 250
	rec := serveJSON(t, svc, http.MethodPost, "/v1/ad-requests", payload)

	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	c.Check(gotParam.Platform, qt.Equals, constant.PlatformMeta)
	c.Check(gotParam.Length.Price, qt.Equals, 250.0)

	var resp map[string]any
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	c.Check(resp["request_uid"], qt.Equals, requestUID.String())
	c.Check(resp["generation_ms"], qt.Equals, 1234.0)
}

func TestCreateAdRequest_BadPayloads(t *testing.T) {
	c := qt.New(t)

	svc := &fakeService{
		generateFn: func(ctx context.Context, param service.GenerateAdsParam) (*service.GenerateAdsResult, error) {
			c.Fatal("service must not be called for invalid payloads")
			return nil, nil
		},
	}

	tests := []struct {
		name   string
		mutate func(p *CreateAdRequestPayload)
	}{
		{name: "missing tenant", mutate: func(p *CreateAdRequestPayload) { p.TenantUID = "" }},
		{name: "malformed tenant", mutate: func(p *CreateAdRequestPayload) { p.TenantUID = "not-a-uuid" }},
		{name: "missing description", mutate: func(p *CreateAdRequestPayload) { p.Description = "" }},
		{name: "missing platform", mutate: func(p *CreateAdRequestPayload) { p.Platform = "" }},
	}

	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			payload := validPayload()
			tc.mutate(&payload)
			rec := serveJSON(t, svc, http.MethodPost, "/v1/ad-requests", payload)
			c.Check(rec.Code, qt.Equals, http.StatusBadRequest)
		})
	}
}

func TestCreateAdRequest_ErrorMapping(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "invalid argument", err: fmt.Errorf("%w: bad goal", errorsx.ErrInvalidArgument), wantCode: http.StatusBadRequest},
		{name: "image analysis", err: fmt.Errorf("%w: timeout", errorsx.ErrImageAnalysisFailed), wantCode: http.StatusBadGateway},
		{name: "retrieval", err: fmt.Errorf("%w: empty", errorsx.ErrRetrievalFailed), wantCode: http.StatusBadGateway},
		{name: "generation", err: fmt.Errorf("%w: arity", errorsx.ErrGenerationFailed), wantCode: http.StatusBadGateway},
		{name: "cancelled", err: errorsx.ErrRequestCancelled, wantCode: 499},
		{name: "persistence", err: fmt.Errorf("%w: deadlock", errorsx.ErrPersistenceFailed), wantCode: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			svc := &fakeService{
				generateFn: func(ctx context.Context, param service.GenerateAdsParam) (*service.GenerateAdsResult, error) {
					return nil, tc.err
				},
			}
			rec := serveJSON(t, svc, http.MethodPost, "/v1/ad-requests", validPayload())
			c.Check(rec.Code, qt.Equals, tc.wantCode)
		})
	}
}

func TestGetAdRequest(t *testing.T) {
	c := qt.New(t)

	requestUID := uuid.Must(uuid.NewV4())
	svc := &fakeService{
		getFn: func(ctx context.Context, uid types.RequestUIDType) (*repository.AdRequest, []repository.AdVariant, error) {
			if uid != requestUID {
				return nil, nil, fmt.Errorf("request %s: %w", uid, errorsx.ErrNotFound)
			}
			return &repository.AdRequest{UID: uid, Status: "generated"}, []repository.AdVariant{{RequestUID: uid}}, nil
		},
	}

	rec := serveJSON(t, svc, http.MethodGet, "/v1/ad-requests/"+requestUID.String(), nil)
	c.Check(rec.Code, qt.Equals, http.StatusOK)

	rec = serveJSON(t, svc, http.MethodGet, "/v1/ad-requests/"+uuid.Must(uuid.NewV4()).String(), nil)
	c.Check(rec.Code, qt.Equals, http.StatusNotFound)

	rec = serveJSON(t, svc, http.MethodGet, "/v1/ad-requests/not-a-uuid", nil)
	c.Check(rec.Code, qt.Equals, http.StatusBadRequest)
}

func TestListAdRequests(t *testing.T) {
	c := qt.New(t)

	tenantUID := uuid.Must(uuid.NewV4())
	var gotLimit int
	var gotBefore *time.Time
	svc := &fakeService{
		listFn: func(ctx context.Context, got types.TenantUIDType, limit int, before *time.Time) ([]repository.AdRequest, error) {
			gotLimit = limit
			gotBefore = before
			return []repository.AdRequest{{TenantUID: got}}, nil
		},
	}

	rec := serveJSON(t, svc, http.MethodGet, "/v1/ad-requests?tenant_uid="+tenantUID.String()+"&limit=25", nil)
	c.Check(rec.Code, qt.Equals, http.StatusOK)
	c.Check(gotLimit, qt.Equals, 25)
	c.Check(gotBefore, qt.IsNil)

	cursor := time.Now().UTC().Format(time.RFC3339Nano)
	rec = serveJSON(t, svc, http.MethodGet, "/v1/ad-requests?tenant_uid="+tenantUID.String()+"&before="+cursor, nil)
	c.Check(rec.Code, qt.Equals, http.StatusOK)
	c.Check(gotBefore, qt.IsNotNil)

	rec = serveJSON(t, svc, http.MethodGet, "/v1/ad-requests", nil)
	c.Check(rec.Code, qt.Equals, http.StatusBadRequest)

	rec = serveJSON(t, svc, http.MethodGet, "/v1/ad-requests?tenant_uid="+tenantUID.String()+"&limit=-1", nil)
	c.Check(rec.Code, qt.Equals, http.StatusBadRequest)
}

func TestHealthz(t *testing.T) {
	c := qt.New(t)

	svc := &fakeService{}
	rec := serveJSON(t, svc, http.MethodGet, "/healthz", nil)
	c.Check(rec.Code, qt.Equals, http.StatusOK)
}
