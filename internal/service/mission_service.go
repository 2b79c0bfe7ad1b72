package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamemarket/internal/model"
	"gamemarket/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrMissionDisabled = errors.New("任务已下线")
	ErrWrongCode       = errors.New("校验码错误")
	ErrMissionClaimed  = errors.New("该任务已领取过奖励")
)

type missionStore interface {
	Create(ctx context.Context, mission *model.Mission) error
	GetByID(ctx context.Context, id int64) (*model.Mission, error)
	ListEnabled(ctx context.Context) ([]*model.Mission, error)
	GetAttemptByScopeKey(ctx context.Context, scopeKey string) (*model.MissionAttempt, error)
	CreateAttempt(ctx context.Context, attempt *model.MissionAttempt) error
	CompleteAttempt(ctx context.Context, attemptID int64, amount int64) error
}

type experienceGranter interface {
	AddExperience(ctx context.Context, userID int64, exp int64) error
}

// MissionService 任务：开始 -> 验证 -> 发奖
type MissionService struct {
	missions missionStore
	wallet   coinWallet
	users    experienceGranter
	now      func() time.Time
}

func NewMissionService(db *gorm.DB) *MissionService {
	return &MissionService{
		missions: repository.NewMissionRepository(db),
		wallet:   NewWalletService(db),
		users:    repository.NewUserRepository(db),
		now:      time.Now,
	}
}

// missionScopeKey 生成领取唯一性范围键
//   - 每用户一次的任务按 (user, mission) 限制
//   - 其余按 (ip, mission, 当天) 限制，同一出口IP一天只能领一次
func missionScopeKey(m *model.Mission, userID int64, ip string, day string) string {
	if m.SingleUsePerUser {
		return fmt.Sprintf("user:%d:mission:%d", userID, m.ID)
	}
	return fmt.Sprintf("ip:%s:mission:%d:day:%s", ip, m.ID, day)
}

func (s *MissionService) List(ctx context.Context) ([]*model.Mission, error) {
	return s.missions.ListEnabled(ctx)
}

// Start 开始任务：落一条 STARTED 领取记录
// STARTED 不是终态，重复调用直接返回已有记录
func (s *MissionService) Start(ctx context.Context, userID, missionID int64, ip string) (*model.MissionAttempt, error) {
	mission, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if !mission.IsEnabled {
		return nil, ErrMissionDisabled
	}

	scopeKey := missionScopeKey(mission, userID, ip, dateKey(s.now()))

	existing, err := s.missions.GetAttemptByScopeKey(ctx, scopeKey)
	if err != nil {
		return nil, fmt.Errorf("查询领取记录失败: %w", err)
	}
	if existing != nil {
		if existing.Status == model.AttemptStatusCompleted {
			return nil, ErrMissionClaimed
		}
		return existing, nil
	}

	attempt := &model.MissionAttempt{
		UserID:    userID,
		MissionID: missionID,
		ScopeKey:  scopeKey,
		Status:    model.AttemptStatusStarted,
		IP:        ip,
	}
	if err := s.missions.CreateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrAttemptExists) {
			// 并发 start 落库竞争，读回已有记录
			return s.missions.GetAttemptByScopeKey(ctx, scopeKey)
		}
		return nil, fmt.Errorf("落库领取记录失败: %w", err)
	}
	return attempt, nil
}

// Verify 验证任务并发奖
//
// 【关键点】COMPLETED 推进是条件更新，并发验证只有一个请求能赢，
// 赢了才加币——先占终态再发奖，保证同一范围只发一次
func (s *MissionService) Verify(ctx context.Context, userID, missionID int64, code, ip string) (int64, error) {
	mission, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		return 0, err
	}
	if !mission.IsEnabled {
		return 0, ErrMissionDisabled
	}
	if mission.Code != "" && mission.Code != code {
		return 0, ErrWrongCode
	}

	scopeKey := missionScopeKey(mission, userID, ip, dateKey(s.now()))

	attempt, err := s.missions.GetAttemptByScopeKey(ctx, scopeKey)
	if err != nil {
		return 0, fmt.Errorf("查询领取记录失败: %w", err)
	}
	if attempt == nil {
		// 未调用过 start，补一条 STARTED
		attempt = &model.MissionAttempt{
			UserID:    userID,
			MissionID: missionID,
			ScopeKey:  scopeKey,
			Status:    model.AttemptStatusStarted,
			IP:        ip,
		}
		if err := s.missions.CreateAttempt(ctx, attempt); err != nil {
			if !errors.Is(err, repository.ErrAttemptExists) {
				return 0, fmt.Errorf("落库领取记录失败: %w", err)
			}
			// 撞上的可能是并发 start 的 STARTED 记录，重读后按其状态继续
			attempt, err = s.missions.GetAttemptByScopeKey(ctx, scopeKey)
			if err != nil {
				return 0, fmt.Errorf("查询领取记录失败: %w", err)
			}
			if attempt == nil {
				return 0, ErrMissionClaimed
			}
		}
	}
	if attempt.Status == model.AttemptStatusCompleted {
		return 0, ErrMissionClaimed
	}

	if err := s.missions.CompleteAttempt(ctx, attempt.ID, mission.CoinReward); err != nil {
		if errors.Is(err, repository.ErrAttemptExists) {
			return 0, ErrMissionClaimed
		}
		return 0, fmt.Errorf("推进领取记录失败: %w", err)
	}

	newBalance, err := s.wallet.Credit(ctx, &MutationRequest{
		UserID:   userID,
		Actor:    fmt.Sprintf("%d", userID),
		Delta:    mission.CoinReward,
		Category: model.LedgerCategoryMission,
		Remark:   fmt.Sprintf("任务奖励-%s", mission.Name),
		RefNo:    scopeKey,
		IP:       ip,
	})
	if err != nil {
		// 终态已占但发奖失败：不回滚终态，记录告警等待人工处理
		logrus.Errorf("[Mission] 发奖失败: userID=%d, missionID=%d, err=%v", userID, missionID, err)
		return 0, fmt.Errorf("发放任务奖励失败: %w", err)
	}

	if mission.ExpReward > 0 {
		if err := s.users.AddExperience(ctx, userID, mission.ExpReward); err != nil {
			logrus.Errorf("[Mission] 经验发放失败: userID=%d, missionID=%d, err=%v", userID, missionID, err)
		}
	}

	logrus.Infof("[Mission] 任务完成: userID=%d, missionID=%d, reward=%d", userID, missionID, mission.CoinReward)
	return newBalance, nil
}

// CreateMission 管理端创建任务
func (s *MissionService) CreateMission(ctx context.Context, mission *model.Mission) error {
	if mission.CoinReward <= 0 {
		return ErrInvalidAmount
	}
	return s.missions.Create(ctx, mission)
}
