package service

import (
	"context"
	"time"

	"gamemarket/internal/model"

	"github.com/stretchr/testify/mock"
)

// 本文件提供服务层依赖接口的 testify mock，仅用于同包测试。
// 测试用结构字面量把 mock 注入服务，替换构造函数装配的真实仓储。

// MockAccountStore accountStore 的 mock 实现
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) ApplyDelta(ctx context.Context, userID int64, delta int64) (int64, error) {
	args := m.Called(ctx, userID, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockAdminUserStore adminUserStore 的 mock 实现
type MockAdminUserStore struct {
	mock.Mock
}

func (m *MockAdminUserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAdminUserStore) UpdateStatus(ctx context.Context, userID int64, status string) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}

func (m *MockAdminUserStore) List(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.User), args.Get(1).(int64), args.Error(2)
}

// MockLedgerSink ledgerSink 的 mock 实现
type MockLedgerSink struct {
	mock.Mock
}

func (m *MockLedgerSink) Create(ctx context.Context, event *model.LedgerEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockLedgerSink) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.LedgerEvent, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.LedgerEvent), args.Get(1).(int64), args.Error(2)
}

// MockCoinWallet coinWallet 的 mock 实现
type MockCoinWallet struct {
	mock.Mock
}

func (m *MockCoinWallet) Apply(ctx context.Context, req *MutationRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCoinWallet) Credit(ctx context.Context, req *MutationRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCoinWallet) Debit(ctx context.Context, req *MutationRequest) (int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(int64), args.Error(1)
}

// MockCheckinStore checkinStore 的 mock 实现
type MockCheckinStore struct {
	mock.Mock
}

func (m *MockCheckinStore) Create(ctx context.Context, record *model.CheckinRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCheckinStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCheckinStore) GetByUserAndDate(ctx context.Context, userID int64, date string) (*model.CheckinRecord, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckinRecord), args.Error(1)
}

// MockMissionCounter missionCounter 的 mock 实现
type MockMissionCounter struct {
	mock.Mock
}

func (m *MockMissionCounter) CountCompletedByUserOnDate(ctx context.Context, userID int64, dayStart, dayEnd time.Time) (int64, error) {
	args := m.Called(ctx, userID, dayStart, dayEnd)
	return args.Get(0).(int64), args.Error(1)
}

// MockMissionStore missionStore 的 mock 实现
type MockMissionStore struct {
	mock.Mock
}

func (m *MockMissionStore) Create(ctx context.Context, mission *model.Mission) error {
	args := m.Called(ctx, mission)
	return args.Error(0)
}

func (m *MockMissionStore) GetByID(ctx context.Context, id int64) (*model.Mission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Mission), args.Error(1)
}

func (m *MockMissionStore) ListEnabled(ctx context.Context) ([]*model.Mission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Mission), args.Error(1)
}

func (m *MockMissionStore) GetAttemptByScopeKey(ctx context.Context, scopeKey string) (*model.MissionAttempt, error) {
	args := m.Called(ctx, scopeKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MissionAttempt), args.Error(1)
}

func (m *MockMissionStore) CreateAttempt(ctx context.Context, attempt *model.MissionAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockMissionStore) CompleteAttempt(ctx context.Context, attemptID int64, amount int64) error {
	args := m.Called(ctx, attemptID, amount)
	return args.Error(0)
}

// MockExperienceGranter experienceGranter 的 mock 实现
type MockExperienceGranter struct {
	mock.Mock
}

func (m *MockExperienceGranter) AddExperience(ctx context.Context, userID int64, exp int64) error {
	args := m.Called(ctx, userID, exp)
	return args.Error(0)
}

// MockGiftStore giftStore 的 mock 实现
type MockGiftStore struct {
	mock.Mock
}

func (m *MockGiftStore) Create(ctx context.Context, token *model.GiftToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockGiftStore) GetByCode(ctx context.Context, code string) (*model.GiftToken, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GiftToken), args.Error(1)
}

func (m *MockGiftStore) ConsumeUse(ctx context.Context, tokenID int64, now time.Time) error {
	args := m.Called(ctx, tokenID, now)
	return args.Error(0)
}

func (m *MockGiftStore) ReleaseUse(ctx context.Context, tokenID int64) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockGiftStore) CreateRedemption(ctx context.Context, redemption *model.GiftRedemption) error {
	args := m.Called(ctx, redemption)
	return args.Error(0)
}

func (m *MockGiftStore) DeleteRedemption(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGiftStore) GetRedemption(ctx context.Context, tokenID, userID int64) (*model.GiftRedemption, error) {
	args := m.Called(ctx, tokenID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GiftRedemption), args.Error(1)
}

// MockCardStore cardStore 的 mock 实现
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) Create(ctx context.Context, order *model.CardOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockCardStore) GetByRequestID(ctx context.Context, requestID string) (*model.CardOrder, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CardOrder), args.Error(1)
}

func (m *MockCardStore) Settle(ctx context.Context, requestID, fromStatus, toStatus string, realValue, creditedCoins int64) error {
	args := m.Called(ctx, requestID, fromStatus, toStatus, realValue, creditedCoins)
	return args.Error(0)
}

func (m *MockCardStore) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.CardOrder, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.CardOrder), args.Get(1).(int64), args.Error(2)
}

// MockOutboxWriter outboxWriter 的 mock 实现
type MockOutboxWriter struct {
	mock.Mock
}

func (m *MockOutboxWriter) Create(ctx context.Context, msg *model.OutboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockGameStore gameStore 的 mock 实现
type MockGameStore struct {
	mock.Mock
}

func (m *MockGameStore) Create(ctx context.Context, round *model.GameRound) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockGameStore) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.GameRound, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.GameRound), args.Get(1).(int64), args.Error(2)
}

// MockListingStore listingStore 的 mock 实现
type MockListingStore struct {
	mock.Mock
}

func (m *MockListingStore) ClaimOneByCategory(ctx context.Context, category string, buyerID int64) (*model.Listing, error) {
	args := m.Called(ctx, category, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Listing), args.Error(1)
}

func (m *MockListingStore) ListByCategory(ctx context.Context, category string, page, pageSize int) ([]*model.Listing, int64, error) {
	args := m.Called(ctx, category, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Listing), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingStore) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Listing), args.Error(1)
}

func (m *MockListingStore) SwapTopBid(ctx context.Context, listingID, oldBid, newBid, bidderID int64) error {
	args := m.Called(ctx, listingID, oldBid, newBid, bidderID)
	return args.Error(0)
}

func (m *MockListingStore) GetPackageByID(ctx context.Context, id int64) (*model.AccountPackage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccountPackage), args.Error(1)
}

func (m *MockListingStore) ListPackages(ctx context.Context) ([]*model.AccountPackage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AccountPackage), args.Error(1)
}

// MockPurchaseStore purchaseStore 的 mock 实现
type MockPurchaseStore struct {
	mock.Mock
}

func (m *MockPurchaseStore) Create(ctx context.Context, order *model.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseStore) GetByOrderNo(ctx context.Context, orderNo string) (*model.PurchaseOrder, error) {
	args := m.Called(ctx, orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseStore) GetByRequestID(ctx context.Context, requestID string) (*model.PurchaseOrder, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseStore) UpdateStatus(ctx context.Context, orderNo, fromStatus, toStatus string) error {
	args := m.Called(ctx, orderNo, fromStatus, toStatus)
	return args.Error(0)
}

func (m *MockPurchaseStore) SetListing(ctx context.Context, orderNo string, listingID int64) error {
	args := m.Called(ctx, orderNo, listingID)
	return args.Error(0)
}

func (m *MockPurchaseStore) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.PurchaseOrder, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.PurchaseOrder), args.Get(1).(int64), args.Error(2)
}

// MockUploadStore uploadStore 的 mock 实现
type MockUploadStore struct {
	mock.Mock
}

func (m *MockUploadStore) Create(ctx context.Context, job *model.UploadJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockUploadStore) GetByJobNo(ctx context.Context, jobNo string) (*model.UploadJob, error) {
	args := m.Called(ctx, jobNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadJob), args.Error(1)
}

func (m *MockUploadStore) GetQueued(ctx context.Context, limit int) ([]*model.UploadJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UploadJob), args.Error(1)
}

func (m *MockUploadStore) UpdateStatus(ctx context.Context, jobNo, fromStatus, toStatus string) error {
	args := m.Called(ctx, jobNo, fromStatus, toStatus)
	return args.Error(0)
}

func (m *MockUploadStore) Finish(ctx context.Context, jobNo, toStatus string, total, imported, skipped int, errMsg string) error {
	args := m.Called(ctx, jobNo, toStatus, total, imported, skipped, errMsg)
	return args.Error(0)
}

// MockListingBatchWriter listingBatchWriter 的 mock 实现
type MockListingBatchWriter struct {
	mock.Mock
}

func (m *MockListingBatchWriter) CreateBatch(ctx context.Context, listings []*model.Listing) error {
	args := m.Called(ctx, listings)
	return args.Error(0)
}

// fakeLock 测试用本地锁，按预设结果响应
type fakeLock struct {
	acquired bool
}

func (l *fakeLock) TryLock(ctx context.Context) (bool, error) {
	return l.acquired, nil
}

func (l *fakeLock) Unlock(ctx context.Context) error {
	return nil
}
