package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/oddsvault-backend/internal/subscriptions"
	"github.com/angelmondragon/oddsvault-backend/internal/transactions"
	"github.com/angelmondragon/oddsvault-backend/pkg/db/models"
	"github.com/angelmondragon/oddsvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/oddsvault-backend/pkg/errors"
)

type stubSubscriptionService struct {
	subscriptions.Service
	accessCalls int
	hasAccess   bool
	listParams  subscriptions.ListParams
	subscribed  uuid.UUID
}

func (s *stubSubscriptionService) HasAccess(_ context.Context, _ uuid.UUID, _ string) (bool, error) {
	s.accessCalls++
	return s.hasAccess, nil
}

func (s *stubSubscriptionService) ListAll(_ context.Context, params subscriptions.ListParams) (*subscriptions.ListResult, error) {
	s.listParams = params
	return &subscriptions.ListResult{}, nil
}

func (s *stubSubscriptionService) Subscribe(_ context.Context, userID, planID uuid.UUID) (*models.UserSubscription, error) {
	s.subscribed = planID
	return &models.UserSubscription{UserID: userID, PlanID: planID}, nil
}

type stubTransactionService struct {
	transactions.Service
	approveResult *transactions.CompletionResult
	getArgs       struct {
		viewer  uuid.UUID
		isAdmin bool
	}
	failed   uuid.UUID
	refunded uuid.UUID
}

func (s *stubTransactionService) Approve(context.Context, uuid.UUID) (*transactions.CompletionResult, error) {
	return s.approveResult, nil
}

func (s *stubTransactionService) Get(_ context.Context, viewerID uuid.UUID, isAdmin bool, id uuid.UUID) (*models.Transaction, error) {
	s.getArgs.viewer = viewerID
	s.getArgs.isAdmin = isAdmin
	return &models.Transaction{ID: id}, nil
}

func (s *stubTransactionService) Fail(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.failed = id
	return &models.Transaction{ID: id, Status: enums.TransactionStatusFailed}, nil
}

func (s *stubTransactionService) Refund(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	if s.failed == id {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed transactions can be refunded")
	}
	s.refunded = id
	return &models.Transaction{ID: id}, nil
}

func TestCheckAccessAdminsBypassEntitlement(t *testing.T) {
	svc := &stubSubscriptionService{}

	rec := httptest.NewRecorder()
	CheckAccess(svc, nil).ServeHTTP(rec, withSession(newRequest(http.MethodGet, "/?plan=vip", ""), uuid.New(), enums.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, svc.accessCalls)
	got := decodeData[subscriptions.AccessResult](t, rec)
	require.True(t, got.HasAccess)
	require.Equal(t, "vip", got.PlanSlug)

	rec = httptest.NewRecorder()
	CheckAccess(svc, nil).ServeHTTP(rec, withSession(newRequest(http.MethodGet, "/?plan=vip", ""), uuid.New(), enums.RoleUser))
	require.Equal(t, 1, svc.accessCalls)
	require.False(t, decodeData[subscriptions.AccessResult](t, rec).HasAccess)
}

func TestSubscribeValidatesPlanID(t *testing.T) {
	svc := &stubSubscriptionService{}
	userID := uuid.New()

	rec := httptest.NewRecorder()
	Subscribe(svc, nil).ServeHTTP(rec, withSession(newRequest(http.MethodPost, "/", `{"plan_id":"vip"}`), userID, enums.RoleUser))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	planID := uuid.New()
	rec = httptest.NewRecorder()
	Subscribe(svc, nil).ServeHTTP(rec, withSession(newRequest(http.MethodPost, "/", `{"plan_id":"`+planID.String()+`"}`), userID, enums.RoleUser))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, planID, svc.subscribed)
}

func TestAdminListSubscriptionsForwardsFilters(t *testing.T) {
	svc := &stubSubscriptionService{}
	planID := uuid.NewString()

	rec := httptest.NewRecorder()
	AdminListSubscriptions(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/?status=active&planId="+planID+"&limit=5", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, subscriptions.ListParams{Status: "active", PlanID: planID, Limit: 5}, svc.listParams)
}

func TestAdminApproveReportsEntitlementWarning(t *testing.T) {
	txnID := uuid.New()
	svc := &stubTransactionService{approveResult: &transactions.CompletionResult{
		Transaction: &models.Transaction{ID: txnID},
		Warning:     "payment recorded but subscription was not updated",
	}}

	req := withParams(newRequest(http.MethodPost, "/", ""), "transactionID", txnID.String())
	rec := httptest.NewRecorder()
	AdminApproveTransaction(svc, testLogger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[transactions.CompletionResult](t, rec)
	require.False(t, got.SubscriptionUpdated)
	require.NotEmpty(t, got.Warning)
}

func TestGetTransactionPassesViewerRole(t *testing.T) {
	svc := &stubTransactionService{}
	viewer := uuid.New()

	req := withParams(newRequest(http.MethodGet, "/", ""), "transactionID", uuid.NewString())
	rec := httptest.NewRecorder()
	GetTransaction(svc, nil).ServeHTTP(rec, withSession(req, viewer, enums.RoleAdmin))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, viewer, svc.getArgs.viewer)
	require.True(t, svc.getArgs.isAdmin)
}

func TestAdminFailThenRefundConflicts(t *testing.T) {
	svc := &stubTransactionService{}
	txnID := uuid.New()

	rec := httptest.NewRecorder()
	AdminFailTransaction(svc, nil).ServeHTTP(rec, withParams(newRequest(http.MethodPost, "/", ""), "transactionID", txnID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, txnID, svc.failed)

	rec = httptest.NewRecorder()
	AdminRefundTransaction(svc, nil).ServeHTTP(rec, withParams(newRequest(http.MethodPost, "/", ""), "transactionID", txnID.String()))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, uuid.Nil, svc.refunded)

	rec = httptest.NewRecorder()
	AdminRefundTransaction(svc, nil).ServeHTTP(rec, withParams(newRequest(http.MethodPost, "/", ""), "transactionID", "not-a-uuid"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
