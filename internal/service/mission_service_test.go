package service

import (
	"context"
	"testing"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMissionScopeKey(t *testing.T) {
	perUser := &model.Mission{ID: 3, SingleUsePerUser: true}
	perIP := &model.Mission{ID: 3, SingleUsePerUser: false}

	assert.Equal(t, "user:9:mission:3", missionScopeKey(perUser, 9, "1.2.3.4", "2024-03-04"))
	assert.Equal(t, "ip:1.2.3.4:mission:3:day:2024-03-04", missionScopeKey(perIP, 9, "1.2.3.4", "2024-03-04"))
}

func newMissionServiceForTest(missions *MockMissionStore, wallet *MockCoinWallet, users *MockExperienceGranter) *MissionService {
	return &MissionService{
		missions: missions,
		wallet:   wallet,
		users:    users,
		now:      fixedClock("2024-03-04"),
	}
}

func TestMissionService_Verify(t *testing.T) {
	ctx := context.Background()
	mission := &model.Mission{
		ID:               3,
		Name:             "访问落地页",
		Code:             "ABC123",
		CoinReward:       40,
		ExpReward:        20,
		SingleUsePerUser: true,
		IsEnabled:        true,
	}

	t.Run("验证通过发金币和经验", func(t *testing.T) {
		missions := new(MockMissionStore)
		wallet := new(MockCoinWallet)
		users := new(MockExperienceGranter)
		svc := newMissionServiceForTest(missions, wallet, users)

		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)
		missions.On("GetAttemptByScopeKey", ctx, "user:9:mission:3").
			Return(&model.MissionAttempt{ID: 11, Status: model.AttemptStatusStarted}, nil)
		missions.On("CompleteAttempt", ctx, int64(11), int64(40)).Return(nil)
		wallet.On("Credit", ctx, mock.MatchedBy(func(req *MutationRequest) bool {
			return req.Delta == 40 && req.Category == model.LedgerCategoryMission
		})).Return(int64(140), nil)
		users.On("AddExperience", ctx, int64(9), int64(20)).Return(nil)

		balance, err := svc.Verify(ctx, 9, 3, "ABC123", "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, int64(140), balance)
		users.AssertExpectations(t)
	})

	t.Run("校验码错误拒绝", func(t *testing.T) {
		missions := new(MockMissionStore)
		wallet := new(MockCoinWallet)
		svc := newMissionServiceForTest(missions, wallet, new(MockExperienceGranter))

		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)

		_, err := svc.Verify(ctx, 9, 3, "WRONG", "1.2.3.4")
		assert.ErrorIs(t, err, ErrWrongCode)
		wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("已完成的范围再验证拒绝", func(t *testing.T) {
		missions := new(MockMissionStore)
		wallet := new(MockCoinWallet)
		svc := newMissionServiceForTest(missions, wallet, new(MockExperienceGranter))

		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)
		missions.On("GetAttemptByScopeKey", ctx, "user:9:mission:3").
			Return(&model.MissionAttempt{ID: 11, Status: model.AttemptStatusCompleted}, nil)

		_, err := svc.Verify(ctx, 9, 3, "ABC123", "1.2.3.4")
		assert.ErrorIs(t, err, ErrMissionClaimed)
		wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("并发验证输掉终态竞争不发奖", func(t *testing.T) {
		missions := new(MockMissionStore)
		wallet := new(MockCoinWallet)
		svc := newMissionServiceForTest(missions, wallet, new(MockExperienceGranter))

		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)
		missions.On("GetAttemptByScopeKey", ctx, "user:9:mission:3").
			Return(&model.MissionAttempt{ID: 11, Status: model.AttemptStatusStarted}, nil)
		missions.On("CompleteAttempt", ctx, int64(11), int64(40)).
			Return(repository.ErrAttemptExists)

		_, err := svc.Verify(ctx, 9, 3, "ABC123", "1.2.3.4")
		assert.ErrorIs(t, err, ErrMissionClaimed)
		wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("未start过自动补STARTED再完成", func(t *testing.T) {
		missions := new(MockMissionStore)
		wallet := new(MockCoinWallet)
		users := new(MockExperienceGranter)
		svc := newMissionServiceForTest(missions, wallet, users)

		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)
		missions.On("GetAttemptByScopeKey", ctx, "user:9:mission:3").Return(nil, nil)
		missions.On("CreateAttempt", ctx, mock.MatchedBy(func(a *model.MissionAttempt) bool {
			return a.ScopeKey == "user:9:mission:3" && a.Status == model.AttemptStatusStarted
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*model.MissionAttempt).ID = 12
		}).Return(nil)
		missions.On("CompleteAttempt", ctx, int64(12), int64(40)).Return(nil)
		wallet.On("Credit", ctx, mock.Anything).Return(int64(40), nil)
		users.On("AddExperience", ctx, int64(9), int64(20)).Return(nil)

		_, err := svc.Verify(ctx, 9, 3, "ABC123", "1.2.3.4")
		require.NoError(t, err)
	})

	t.Run("补建撞上并发start的STARTED记录仍可完成", func(t *testing.T) {
		missions := new(MockMissionStore)
		wallet := new(MockCoinWallet)
		users := new(MockExperienceGranter)
		svc := newMissionServiceForTest(missions, wallet, users)

		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)
		// 第一次没查到，补建时撞唯一索引，重读拿到并发 start 落下的记录
		missions.On("GetAttemptByScopeKey", ctx, "user:9:mission:3").Return(nil, nil).Once()
		missions.On("CreateAttempt", ctx, mock.Anything).Return(repository.ErrAttemptExists)
		missions.On("GetAttemptByScopeKey", ctx, "user:9:mission:3").
			Return(&model.MissionAttempt{ID: 13, Status: model.AttemptStatusStarted}, nil).Once()
		missions.On("CompleteAttempt", ctx, int64(13), int64(40)).Return(nil)
		wallet.On("Credit", ctx, mock.Anything).Return(int64(40), nil)
		users.On("AddExperience", ctx, int64(9), int64(20)).Return(nil)

		_, err := svc.Verify(ctx, 9, 3, "ABC123", "1.2.3.4")
		require.NoError(t, err)
		missions.AssertCalled(t, "CompleteAttempt", ctx, int64(13), int64(40))
	})

	t.Run("补建撞上的记录已是终态则拒绝", func(t *testing.T) {
		missions := new(MockMissionStore)
		wallet := new(MockCoinWallet)
		svc := newMissionServiceForTest(missions, wallet, new(MockExperienceGranter))

		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)
		missions.On("GetAttemptByScopeKey", ctx, "user:9:mission:3").Return(nil, nil).Once()
		missions.On("CreateAttempt", ctx, mock.Anything).Return(repository.ErrAttemptExists)
		missions.On("GetAttemptByScopeKey", ctx, "user:9:mission:3").
			Return(&model.MissionAttempt{ID: 13, Status: model.AttemptStatusCompleted}, nil).Once()

		_, err := svc.Verify(ctx, 9, 3, "ABC123", "1.2.3.4")
		assert.ErrorIs(t, err, ErrMissionClaimed)
		wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("下线任务拒绝", func(t *testing.T) {
		missions := new(MockMissionStore)
		svc := newMissionServiceForTest(missions, new(MockCoinWallet), new(MockExperienceGranter))

		disabled := &model.Mission{ID: 4, IsEnabled: false}
		missions.On("GetByID", ctx, int64(4)).Return(disabled, nil)

		_, err := svc.Verify(ctx, 9, 4, "", "1.2.3.4")
		assert.ErrorIs(t, err, ErrMissionDisabled)
	})
}

func TestMissionService_Start(t *testing.T) {
	ctx := context.Background()
	mission := &model.Mission{ID: 3, CoinReward: 40, IsEnabled: true}

	t.Run("重复start返回已有记录", func(t *testing.T) {
		missions := new(MockMissionStore)
		svc := newMissionServiceForTest(missions, new(MockCoinWallet), new(MockExperienceGranter))

		existing := &model.MissionAttempt{ID: 11, Status: model.AttemptStatusStarted}
		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)
		missions.On("GetAttemptByScopeKey", ctx, mock.Anything).Return(existing, nil)

		attempt, err := svc.Start(ctx, 9, 3, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, existing, attempt)
		missions.AssertNotCalled(t, "CreateAttempt", mock.Anything, mock.Anything)
	})

	t.Run("已完成的范围start拒绝", func(t *testing.T) {
		missions := new(MockMissionStore)
		svc := newMissionServiceForTest(missions, new(MockCoinWallet), new(MockExperienceGranter))

		missions.On("GetByID", ctx, int64(3)).Return(mission, nil)
		missions.On("GetAttemptByScopeKey", ctx, mock.Anything).
			Return(&model.MissionAttempt{Status: model.AttemptStatusCompleted}, nil)

		_, err := svc.Start(ctx, 9, 3, "1.2.3.4")
		assert.ErrorIs(t, err, ErrMissionClaimed)
	})
}
